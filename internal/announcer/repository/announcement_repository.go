package repository

import (
	"context"
	"errors"

	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyAnnounced is returned by Record when the contract id is already in the ledger.
var ErrAlreadyAnnounced = errors.New("opportunity already announced")

// AnnouncementRepository is the durable ledger of published opportunities.
type AnnouncementRepository interface {
	IsAnnounced(ctx context.Context, contractID string) (bool, error)
	Record(ctx context.Context, announcement *entity.Announcement) error
}

// NewAnnouncementRepository creates a new GORM-based announcement ledger.
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

type announcementRepository struct {
	db *gorm.DB
}

// IsAnnounced reports whether the contract id has a ledger row. Unknown ids return false.
func (r *announcementRepository) IsAnnounced(ctx context.Context, contractID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Announcement{}).
		Where("contract_id = ?", contractID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, apperror.New(apperror.KindTransient, "announcements.is_announced", err)
	}
	return count > 0, nil
}

// Record inserts the announcement. The unique key on contract_id makes concurrent inserts of
// the same id resolve to exactly one row; the loser gets ErrAlreadyAnnounced.
func (r *announcementRepository) Record(ctx context.Context, announcement *entity.Announcement) error {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_id"}},
		DoNothing: true,
	}).Create(announcement)

	if tx.Error != nil {
		return apperror.New(apperror.KindTransient, "announcements.record", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperror.New(apperror.KindDuplicate, "announcements.record", ErrAlreadyAnnounced)
	}
	return nil
}
