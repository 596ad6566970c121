package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/pkg/apperror"
	"gorm.io/gorm"
)

type RatingService interface {
	// Rate records the user's 1-5 rating of a resource, replacing any
	// earlier rating from the same user.
	Rate(ctx context.Context, userID uuid.UUID, slug string, rating int, comments *string) (*model.ResourceRating, error)
}

type ratingService struct {
	ratingRepo   repository.RatingRepository
	resourceRepo repository.ResourceRepository
}

func NewRatingService(ratingRepo repository.RatingRepository, resourceRepo repository.ResourceRepository) RatingService {
	return &ratingService{ratingRepo: ratingRepo, resourceRepo: resourceRepo}
}

func (s *ratingService) Rate(ctx context.Context, userID uuid.UUID, slug string, rating int, comments *string) (*model.ResourceRating, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.New(0, "rating must be between 1 and 5", apperror.ErrInvalidInput)
	}

	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if resource.Status != model.StatusApproved {
		return nil, apperror.ErrNotFound
	}

	row := &model.ResourceRating{
		UserID:     userID,
		ResourceID: resource.ID,
		Rating:     rating,
		Comments:   comments,
	}
	if err := s.ratingRepo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}
