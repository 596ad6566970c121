package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"gorm.io/gorm"
)

type RatingRepository interface {
	// Upsert keeps one row per (user, resource) pair.
	Upsert(ctx context.Context, rating *model.ResourceRating) error
	FindByUserAndResource(ctx context.Context, userID, resourceID uuid.UUID) (*model.ResourceRating, error)
	// Summary returns the average rating and the number of ratings.
	Summary(ctx context.Context, resourceID uuid.UUID) (float64, int64, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *model.ResourceRating) error {
	existing, err := r.FindByUserAndResource(ctx, rating.UserID, rating.ResourceID)
	if err != nil {
		return err
	}

	if existing == nil {
		return r.db.WithContext(ctx).Create(rating).Error
	}

	existing.Rating = rating.Rating
	existing.Comments = rating.Comments
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return err
	}
	*rating = *existing
	return nil
}

func (r *ratingRepository) FindByUserAndResource(ctx context.Context, userID, resourceID uuid.UUID) (*model.ResourceRating, error) {
	var rating model.ResourceRating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ratingRepository) Summary(ctx context.Context, resourceID uuid.UUID) (float64, int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.ResourceRating{}).
		Where("resource_id = ?", resourceID).
		Count(&count).Error; err != nil {
		return 0, 0, err
	}

	if count == 0 {
		return 0, 0, nil
	}

	var avg float64
	if err := r.db.WithContext(ctx).
		Model(&model.ResourceRating{}).
		Where("resource_id = ?", resourceID).
		Select("AVG(rating)").
		Scan(&avg).Error; err != nil {
		return 0, 0, err
	}

	return avg, count, nil
}
