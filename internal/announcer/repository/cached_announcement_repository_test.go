package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLedger struct {
	announced map[string]bool
	lookups   int
	recordErr error
}

func (l *countingLedger) IsAnnounced(_ context.Context, id string) (bool, error) {
	l.lookups++
	return l.announced[id], nil
}

func (l *countingLedger) Record(_ context.Context, a *entity.Announcement) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	l.announced[a.ContractID] = true
	return nil
}

func TestCachedAnnouncementRepository_CachesPositiveLookups(t *testing.T) {
	inner := &countingLedger{announced: map[string]bool{"N1": true}}
	repo := NewCachedAnnouncementRepository(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		announced, err := repo.IsAnnounced(ctx, "N1")
		require.NoError(t, err)
		assert.True(t, announced)
	}
	assert.Equal(t, 1, inner.lookups)
}

func TestCachedAnnouncementRepository_NegativeLookupsHitStore(t *testing.T) {
	inner := &countingLedger{announced: map[string]bool{}}
	repo := NewCachedAnnouncementRepository(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		announced, err := repo.IsAnnounced(ctx, "N2")
		require.NoError(t, err)
		assert.False(t, announced)
	}
	assert.Equal(t, 2, inner.lookups)

	require.NoError(t, repo.Record(ctx, &entity.Announcement{ContractID: "N2"}))
	announced, err := repo.IsAnnounced(ctx, "N2")
	require.NoError(t, err)
	assert.True(t, announced)
	assert.Equal(t, 2, inner.lookups)
}

func TestCachedAnnouncementRepository_DuplicateRecordIsCached(t *testing.T) {
	inner := &countingLedger{
		announced: map[string]bool{},
		recordErr: apperror.New(apperror.KindDuplicate, "record", ErrAlreadyAnnounced),
	}
	repo := NewCachedAnnouncementRepository(inner, time.Minute)
	ctx := context.Background()

	err := repo.Record(ctx, &entity.Announcement{ContractID: "N3"})
	assert.ErrorIs(t, err, ErrAlreadyAnnounced)

	announced, err := repo.IsAnnounced(ctx, "N3")
	require.NoError(t, err)
	assert.True(t, announced)
	assert.Zero(t, inner.lookups)
}

func TestCachedAnnouncementRepository_FailedRecordIsNotCached(t *testing.T) {
	inner := &countingLedger{announced: map[string]bool{}, recordErr: errors.New("db down")}
	repo := NewCachedAnnouncementRepository(inner, time.Minute)
	ctx := context.Background()

	require.Error(t, repo.Record(ctx, &entity.Announcement{ContractID: "N4"}))
	announced, err := repo.IsAnnounced(ctx, "N4")
	require.NoError(t, err)
	assert.False(t, announced)
}
