package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestHitCountsDistinctSemantics(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewTrackerRepository(db)
	user := seedUser(t, db, "maria")
	resourceID := uuid.New()

	access := func(userID *uuid.UUID, ip string) {
		require.NoError(t, repo.CreateAccess(context.Background(), &model.ResourceTracker{
			Type:       model.TrackerView,
			UserID:     userID,
			ResourceID: &resourceID,
			IP:         strPtr(ip),
		}))
	}

	// Two anonymous visitors, one of them twice.
	access(nil, "10.0.0.1")
	access(nil, "10.0.0.1")
	access(nil, "10.0.0.2")
	// One identified visitor, twice, from two addresses.
	access(&user.ID, "10.0.0.3")
	access(&user.ID, "10.0.0.4")
	// A different resource does not count.
	otherID := uuid.New()
	require.NoError(t, repo.CreateAccess(context.Background(), &model.ResourceTracker{
		Type:       model.TrackerView,
		ResourceID: &otherID,
		IP:         strPtr("10.0.0.9"),
	}))

	anon, identified, err := repo.HitCounts(context.Background(), resourceID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, anon)
	assert.EqualValues(t, 1, identified)
}

func TestLocationByIPMissingIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewTrackerRepository(db)

	loc, err := repo.LocationByIP(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLocationsOrderedByHits(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewTrackerRepository(db)

	require.NoError(t, db.Create(&model.UserLocation{IP: "10.0.0.1", Hits: 3}).Error)
	require.NoError(t, db.Create(&model.UserLocation{IP: "10.0.0.2", Hits: 9}).Error)
	require.NoError(t, db.Create(&model.UserLocation{IP: "10.0.0.3", Hits: 1}).Error)

	locs, err := repo.Locations(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "10.0.0.2", locs[0].IP)
	assert.Equal(t, "10.0.0.1", locs[1].IP)
}

func TestCreateSearch(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewTrackerRepository(db)

	require.NoError(t, repo.CreateSearch(context.Background(), &model.SearchTracker{
		Type:      model.SearchWeb,
		Query:     "diabetes",
		NoResults: 4,
	}))

	var count int64
	require.NoError(t, db.Model(&model.SearchTracker{}).Where("query = ?", "diabetes").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
