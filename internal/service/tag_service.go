package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/pkg/apperror"
	"github.com/healthorb/orb-server/pkg/slugify"
	"gorm.io/gorm"
)

// TagService is the taxonomy registry: categories, their tags, and the
// option sets the submission form validates against.
type TagService interface {
	ListCategories(ctx context.Context, topLevelOnly bool) ([]*model.Category, error)
	TagsByCategory(ctx context.Context, categorySlug string) ([]*model.Tag, error)
	TagSlugsByCategory(ctx context.Context, categorySlug string) ([]string, error)
	GetTag(ctx context.Context, slug string) (*model.Tag, []*model.Tag, error)
	CreateCategory(ctx context.Context, name string, topLevel bool, orderBy int) (*model.Category, error)
	CreateTag(ctx context.Context, input CreateTagInput) (*model.Tag, error)
	// ResolveTagSlugs maps registry slugs to tag IDs.
	ResolveTagSlugs(ctx context.Context, slugs []string) ([]uuid.UUID, error)
	// FindOrCreateByName resolves a free-text name (organisation, other
	// tag) to a tag in the given category, creating it when absent.
	FindOrCreateByName(ctx context.Context, categorySlug, name string, creator uuid.UUID) (*model.Tag, error)
}

type CreateTagInput struct {
	CategorySlug string
	ParentSlug   string
	Name         string
	Description  *string
	Summary      *string
	ExternalURL  *string
	OrderBy      int
	Creator      uuid.UUID
}

type tagService struct {
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
}

func NewTagService(categoryRepo repository.CategoryRepository, tagRepo repository.TagRepository) TagService {
	return &tagService{categoryRepo: categoryRepo, tagRepo: tagRepo}
}

func (s *tagService) ListCategories(ctx context.Context, topLevelOnly bool) ([]*model.Category, error) {
	return s.categoryRepo.FindAll(ctx, topLevelOnly)
}

func (s *tagService) TagsByCategory(ctx context.Context, categorySlug string) ([]*model.Tag, error) {
	if _, err := s.categoryRepo.FindBySlug(ctx, categorySlug); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return s.tagRepo.FindByCategorySlug(ctx, categorySlug)
}

func (s *tagService) TagSlugsByCategory(ctx context.Context, categorySlug string) ([]string, error) {
	tags, err := s.tagRepo.FindByCategorySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(tags))
	for _, t := range tags {
		slugs = append(slugs, t.Slug)
	}
	return slugs, nil
}

func (s *tagService) GetTag(ctx context.Context, slug string) (*model.Tag, []*model.Tag, error) {
	tag, err := s.tagRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.ErrNotFound
		}
		return nil, nil, err
	}

	children, err := s.tagRepo.FindChildren(ctx, tag.ID)
	if err != nil {
		return nil, nil, err
	}
	return tag, children, nil
}

func (s *tagService) CreateCategory(ctx context.Context, name string, topLevel bool, orderBy int) (*model.Category, error) {
	if name == "" {
		return nil, apperror.ErrInvalidInput
	}

	slug, err := slugify.Unique(ctx, name, s.categoryRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:     name,
		Slug:     slug,
		TopLevel: topLevel,
		OrderBy:  orderBy,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *tagService) CreateTag(ctx context.Context, input CreateTagInput) (*model.Tag, error) {
	if input.Name == "" {
		return nil, apperror.ErrInvalidInput
	}

	category, err := s.categoryRepo.FindBySlug(ctx, input.CategorySlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	var parentID *uuid.UUID
	if input.ParentSlug != "" {
		parent, err := s.tagRepo.FindBySlug(ctx, input.ParentSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.ErrNotFound
			}
			return nil, err
		}
		if parent.CategoryID != category.ID {
			return nil, apperror.New(0, "parent tag belongs to a different category", apperror.ErrInvalidInput)
		}
		parentID = &parent.ID
	}

	slug, err := slugify.Unique(ctx, input.Name, s.tagRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	tag := &model.Tag{
		CategoryID:   category.ID,
		ParentTagID:  parentID,
		Name:         input.Name,
		Slug:         slug,
		Description:  input.Description,
		Summary:      input.Summary,
		ExternalURL:  input.ExternalURL,
		OrderBy:      input.OrderBy,
		CreateUserID: input.Creator,
		UpdateUserID: input.Creator,
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *tagService) ResolveTagSlugs(ctx context.Context, slugs []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(slugs))
	for _, slug := range slugs {
		tag, err := s.tagRepo.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.New(0, "unknown tag: "+slug, apperror.ErrInvalidInput)
			}
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func (s *tagService) FindOrCreateByName(ctx context.Context, categorySlug, name string, creator uuid.UUID) (*model.Tag, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, categorySlug)
	if err != nil {
		return nil, err
	}

	tag, err := s.tagRepo.FindByNameInCategory(ctx, category.ID, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	slug, err := slugify.Unique(ctx, name, s.tagRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	created := &model.Tag{
		CategoryID:   category.ID,
		Name:         name,
		Slug:         slug,
		CreateUserID: creator,
		UpdateUserID: creator,
	}
	if err := s.tagRepo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}
