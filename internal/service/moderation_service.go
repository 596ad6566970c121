package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/pkg/apperror"
	"gorm.io/gorm"
)

// reviewerTransitions is the moderation state machine: content review
// first, then medical review, with rejection possible at either step.
// Admins may force any target status.
var reviewerTransitions = map[string][]string{
	model.StatusPendingCRT: {model.StatusPendingMRT, model.StatusRejected},
	model.StatusPendingMRT: {model.StatusApproved, model.StatusRejected},
}

// ModerationService drives a resource through the review workflow and
// keeps the search index in step with visibility.
type ModerationService interface {
	SetStatus(ctx context.Context, reviewerID uuid.UUID, slug, status string, force bool) (*model.Resource, error)
	CanTransition(from, to string, force bool) bool
}

type moderationService struct {
	resourceRepo repository.ResourceRepository
	search       SearchService
}

func NewModerationService(resourceRepo repository.ResourceRepository, search SearchService) ModerationService {
	return &moderationService{resourceRepo: resourceRepo, search: search}
}

func (s *moderationService) CanTransition(from, to string, force bool) bool {
	if !model.ValidStatus(to) {
		return false
	}
	if force {
		return true
	}
	for _, allowed := range reviewerTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *moderationService) SetStatus(ctx context.Context, reviewerID uuid.UUID, slug, status string, force bool) (*model.Resource, error) {
	if !model.ValidStatus(status) {
		return nil, apperror.New(0, "unknown status: "+status, apperror.ErrInvalidInput)
	}

	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if !s.CanTransition(resource.Status, status, force) {
		return nil, apperror.New(0,
			"cannot move resource from "+resource.Status+" to "+status,
			apperror.ErrInvalidInput)
	}

	resource.Status = status
	resource.UpdateUserID = reviewerID
	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		return nil, err
	}

	// Visibility follows status: only approved resources are searchable.
	// Index maintenance failing must not fail the review action.
	if s.search != nil {
		if status == model.StatusApproved {
			tagSlugs, err := s.resourceRepo.TagSlugsFor(ctx, resource.ID)
			if err != nil {
				log.Printf("moderation: failed to load tags for indexing %s: %v", resource.Slug, err)
			} else if err := s.search.IndexResource(resource, tagSlugs); err != nil {
				log.Printf("moderation: failed to index %s: %v", resource.Slug, err)
			}
		} else {
			if err := s.search.RemoveResource(resource.ID.String()); err != nil {
				log.Printf("moderation: failed to remove %s from index: %v", resource.Slug, err)
			}
		}
	}

	return resource, nil
}
