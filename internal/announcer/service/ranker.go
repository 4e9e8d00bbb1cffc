package service

import (
	"sort"
	"time"

	"contract-announcer/internal/entity"
)

// DefaultTopN is the number of opportunities returned when no explicit limit is given.
const DefaultTopN = 5

// Ranker filters, deduplicates and orders opportunities by score.
type Ranker struct {
	scorer *Scorer
}

// NewRanker creates a Ranker backed by the given Scorer.
func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Rank drops expired opportunities, keeps the first occurrence of each id, scores the rest and
// returns at most topN of them ordered by score desc, deadline asc (pending last), id asc.
// A non-positive topN falls back to DefaultTopN.
func (r *Ranker) Rank(opportunities []entity.Opportunity, now time.Time, topN int) []entity.RankedOpportunity {
	if topN <= 0 {
		topN = DefaultTopN
	}
	ranked := r.RankAll(opportunities, now)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// RankAll is Rank without the cap. The pipeline uses it so that already-announced entries at the
// top do not use up the slots of lower-ranked ones.
func (r *Ranker) RankAll(opportunities []entity.Opportunity, now time.Time) []entity.RankedOpportunity {
	seen := make(map[string]struct{}, len(opportunities))
	ranked := make([]entity.RankedOpportunity, 0, len(opportunities))
	for _, o := range opportunities {
		if o.Expired(now) {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		ranked = append(ranked, entity.RankedOpportunity{
			Opportunity: o,
			Score:       r.scorer.Score(o, now),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankedBefore(ranked[i], ranked[j])
	})
	return ranked
}

func rankedBefore(a, b entity.RankedOpportunity) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	switch {
	case a.Deadline != nil && b.Deadline != nil:
		if !a.Deadline.Equal(*b.Deadline) {
			return a.Deadline.Before(*b.Deadline)
		}
	case a.Deadline != nil:
		return true
	case b.Deadline != nil:
		return false
	}
	return a.ID < b.ID
}
