package service

import (
	"math"
	"strings"
	"time"

	"contract-announcer/internal/announcer/config"
	"contract-announcer/internal/entity"
)

const maxScore = 100.0

// ScoringPolicy holds the weights of the relevance model.
type ScoringPolicy struct {
	SetAsideWeights   map[entity.SetAside]float64
	UrgencyMax        float64
	UrgencyWindowDays int
	ValueMax          float64
	ValueUnit         float64
	ValuePerUnit      float64
}

// DefaultScoringPolicy returns the canonical weights: urgency up to 30 over a 30-day window,
// 0.5 points per $10,000 capped at 50 (reached at $1M), and the set-aside table.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		SetAsideWeights: map[entity.SetAside]float64{
			entity.SetAsideSDVOSB:  20,
			entity.SetAsideWOSB:    20,
			entity.SetAsideEightA:  15,
			entity.SetAsideHUBZone: 15,
			entity.SetAsideVOSB:    15,
			entity.SetAsideSBA:     10,
		},
		UrgencyMax:        30,
		UrgencyWindowDays: 30,
		ValueMax:          50,
		ValueUnit:         10_000,
		ValuePerUnit:      0.5,
	}
}

// PolicyFromConfig overlays configured weights on the defaults. Set-aside keys match
// case-insensitively since config keys arrive lower-cased.
func PolicyFromConfig(cfg config.Scoring) ScoringPolicy {
	policy := DefaultScoringPolicy()
	for key, weight := range cfg.SetAsideWeights {
		for _, category := range []entity.SetAside{
			entity.SetAsideSDVOSB, entity.SetAsideWOSB, entity.SetAsideEightA, entity.SetAsideHUBZone,
			entity.SetAsideVOSB, entity.SetAsideSBA, entity.SetAsideOpen, entity.SetAsideUnknown,
		} {
			if strings.EqualFold(key, string(category)) {
				policy.SetAsideWeights[category] = weight
			}
		}
	}
	if cfg.UrgencyMax > 0 {
		policy.UrgencyMax = cfg.UrgencyMax
	}
	if cfg.UrgencyWindowDays > 0 {
		policy.UrgencyWindowDays = cfg.UrgencyWindowDays
	}
	if cfg.ValueMax > 0 {
		policy.ValueMax = cfg.ValueMax
	}
	if cfg.ValueUnit > 0 {
		policy.ValueUnit = cfg.ValueUnit
	}
	if cfg.ValuePerUnit > 0 {
		policy.ValuePerUnit = cfg.ValuePerUnit
	}
	return policy
}

// Scorer computes relevance scores. It never reads the clock; callers pass now.
type Scorer struct {
	policy ScoringPolicy
}

// NewScorer creates a Scorer for the given policy.
func NewScorer(policy ScoringPolicy) *Scorer {
	return &Scorer{policy: policy}
}

// Score returns urgency + value + set-aside, clamped to [0, 100].
func (s *Scorer) Score(o entity.Opportunity, now time.Time) float64 {
	total := s.Urgency(o, now) + s.Value(o) + s.SetAside(o)
	return clamp(total, 0, maxScore)
}

// Urgency ramps linearly from UrgencyMax when the deadline is today (or already past) down to
// zero once the deadline is UrgencyWindowDays or more calendar days away.
func (s *Scorer) Urgency(o entity.Opportunity, now time.Time) float64 {
	if o.Deadline == nil || s.policy.UrgencyWindowDays <= 0 {
		return 0
	}
	days := DaysUntil(now, *o.Deadline)
	if days <= 0 {
		return s.policy.UrgencyMax
	}
	window := float64(s.policy.UrgencyWindowDays)
	return clamp(s.policy.UrgencyMax*(1-float64(days)/window), 0, s.policy.UrgencyMax)
}

// Value awards ValuePerUnit points per ValueUnit dollars, capped at ValueMax.
func (s *Scorer) Value(o entity.Opportunity) float64 {
	if o.EstimatedValue == nil || s.policy.ValueUnit <= 0 {
		return 0
	}
	return clamp(*o.EstimatedValue/s.policy.ValueUnit*s.policy.ValuePerUnit, 0, s.policy.ValueMax)
}

// SetAside looks up the category weight; OPEN and UNKNOWN score zero unless configured.
func (s *Scorer) SetAside(o entity.Opportunity) float64 {
	return math.Max(0, s.policy.SetAsideWeights[o.SetAside])
}

// DaysUntil counts whole calendar days (UTC) from now to deadline; negative when past due.
func DaysUntil(now, deadline time.Time) int {
	from := truncateToDay(now.UTC())
	to := truncateToDay(deadline.UTC())
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
