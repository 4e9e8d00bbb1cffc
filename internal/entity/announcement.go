package entity

import (
	"time"

	"github.com/lib/pq"
)

// Announcement is a ledger row: one opportunity that has been published. Rows are insert-only.
type Announcement struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ContractID    string         `gorm:"column:contract_id;uniqueIndex;not null" json:"contract_id"`
	Title         string         `gorm:"not null" json:"title"`
	AnnouncedAt   time.Time      `gorm:"not null" json:"announced_at"`
	Value         *float64       `json:"value,omitempty"`
	Score         float64        `gorm:"not null" json:"score"`
	Agency        string         `gorm:"not null" json:"agency"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	URL           string         `gorm:"column:url;not null" json:"url"`
	SetAside      string         `gorm:"not null" json:"set_aside"`
	MissingFields pq.StringArray `gorm:"type:text[]" json:"missing_fields"`
}

// TableName specifies the table name for the Announcement model.
func (Announcement) TableName() string {
	return "announcements"
}

// NewAnnouncement builds the ledger row for a ranked opportunity announced at the given time.
func NewAnnouncement(o RankedOpportunity, announcedAt time.Time) *Announcement {
	missing := make(pq.StringArray, len(o.MissingFields))
	copy(missing, o.MissingFields)
	return &Announcement{
		ContractID:    o.ID,
		Title:         o.Title,
		AnnouncedAt:   announcedAt.UTC(),
		Value:         o.EstimatedValue,
		Score:         o.Score,
		Agency:        o.Agency,
		Deadline:      o.Deadline,
		URL:           o.URL,
		SetAside:      string(o.SetAside),
		MissingFields: missing,
	}
}
