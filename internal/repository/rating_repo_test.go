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

func TestUpsertKeepsOneRowPerUserAndResource(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewRatingRepository(db)
	user := seedUser(t, db, "maria")
	resourceID := uuid.New()

	first := &model.ResourceRating{
		UserID:     user.ID,
		ResourceID: resourceID,
		Rating:     3,
	}
	require.NoError(t, repo.Upsert(context.Background(), first))

	second := &model.ResourceRating{
		UserID:     user.ID,
		ResourceID: resourceID,
		Rating:     5,
		Comments:   strPtr("better on a second read"),
	}
	require.NoError(t, repo.Upsert(context.Background(), second))

	// The replacement reuses the original row.
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.ResourceRating{}).
		Where("resource_id = ?", resourceID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := repo.FindByUserAndResource(context.Background(), user.ID, resourceID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 5, stored.Rating)
}

func TestSummaryAveragesAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewRatingRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	resourceID := uuid.New()

	require.NoError(t, repo.Upsert(context.Background(), &model.ResourceRating{
		UserID: alice.ID, ResourceID: resourceID, Rating: 4,
	}))
	require.NoError(t, repo.Upsert(context.Background(), &model.ResourceRating{
		UserID: bob.ID, ResourceID: resourceID, Rating: 2,
	}))

	avg, count, err := repo.Summary(context.Background(), resourceID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.InDelta(t, 3.0, avg, 0.001)
}

func TestSummaryEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewRatingRepository(db)

	avg, count, err := repo.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, avg)
}
