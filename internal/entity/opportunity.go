package entity

import "time"

// SetAside is the small-business eligibility category of an opportunity.
type SetAside string

const (
	SetAsideSDVOSB  SetAside = "SDVOSB"
	SetAsideWOSB    SetAside = "WOSB"
	SetAsideEightA  SetAside = "8A"
	SetAsideHUBZone SetAside = "HUBZone"
	SetAsideVOSB    SetAside = "VOSB"
	SetAsideSBA     SetAside = "SBA"
	SetAsideOpen    SetAside = "OPEN"
	SetAsideUnknown SetAside = "UNKNOWN"
)

// Fields that may be recorded in Opportunity.MissingFields.
const (
	FieldID       = "id"
	FieldDeadline = "deadline"
	FieldValue    = "estimated_value"
	FieldSetAside = "set_aside"
	FieldAgency   = "agency"
	FieldURL      = "url"
)

// DefaultAgency is used when the organizational hierarchy is absent.
const DefaultAgency = "Federal Government"

// Opportunity is a normalized contract listing. Values are never mutated after normalization.
type Opportunity struct {
	ID             string
	Title          string
	Deadline       *time.Time // UTC; nil means pending
	EstimatedValue *float64
	SetAside       SetAside
	Agency         string
	URL            string
	MissingFields  []string
}

// HasDeadline reports whether a response deadline is known.
func (o Opportunity) HasDeadline() bool {
	return o.Deadline != nil
}

// Expired reports whether the deadline is known and strictly before now.
func (o Opportunity) Expired(now time.Time) bool {
	return o.Deadline != nil && o.Deadline.Before(now)
}

// RankedOpportunity is an Opportunity with its relevance score.
type RankedOpportunity struct {
	Opportunity
	Score float64
}

// PublishReceipt acknowledges a message accepted by the social feed.
type PublishReceipt struct {
	MessageID   string
	PublishedAt time.Time
}
