package repository

import (
	"context"
	"errors"
	"time"

	"contract-announcer/internal/entity"

	"github.com/patrickmn/go-cache"
)

// NewCachedAnnouncementRepository remembers positive IsAnnounced answers in memory. Ledger rows
// are never deleted at runtime, so a cached "announced" can never become stale; negative
// answers always go to the underlying store.
func NewCachedAnnouncementRepository(inner AnnouncementRepository, ttl time.Duration) AnnouncementRepository {
	return &cachedAnnouncementRepository{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

type cachedAnnouncementRepository struct {
	inner AnnouncementRepository
	cache *cache.Cache
}

func (r *cachedAnnouncementRepository) IsAnnounced(ctx context.Context, contractID string) (bool, error) {
	if _, found := r.cache.Get(contractID); found {
		return true, nil
	}
	announced, err := r.inner.IsAnnounced(ctx, contractID)
	if err != nil {
		return false, err
	}
	if announced {
		r.cache.SetDefault(contractID, true)
	}
	return announced, nil
}

func (r *cachedAnnouncementRepository) Record(ctx context.Context, announcement *entity.Announcement) error {
	err := r.inner.Record(ctx, announcement)
	if err == nil || errors.Is(err, ErrAlreadyAnnounced) {
		r.cache.SetDefault(announcement.ContractID, true)
	}
	return err
}
