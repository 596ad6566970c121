package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"gorm.io/gorm"
)

type ResourceRepository interface {
	// CreateWithChildren persists the resource together with its files,
	// URLs and tag associations in a single transaction. Nothing is
	// written if any part fails.
	CreateWithChildren(ctx context.Context, resource *model.Resource, files []model.ResourceFile, urls []model.ResourceURL, tagIDs []uuid.UUID) error
	FindBySlug(ctx context.Context, slug string) (*model.Resource, error)
	FindAll(ctx context.Context, filter ResourceFilter) ([]*model.Resource, int64, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, resource *model.Resource) error

	AddFile(ctx context.Context, file *model.ResourceFile) error
	FindFile(ctx context.Context, resourceID, fileID uuid.UUID) (*model.ResourceFile, error)
	RemoveFile(ctx context.Context, fileID uuid.UUID) error
	AddURL(ctx context.Context, url *model.ResourceURL) error
	AddTag(ctx context.Context, rt *model.ResourceTag) error
	AddRelationship(ctx context.Context, rel *model.ResourceRelationship) error

	// CategoriesFor returns, ordered by display order, each category with
	// at least one tag attached to the resource, with those tags loaded.
	CategoriesFor(ctx context.Context, resourceID uuid.UUID) ([]*model.Category, error)
	// TagsByCategorySlug returns the resource's tags within one category.
	TagsByCategorySlug(ctx context.Context, resourceID uuid.UUID, categorySlug string) ([]*model.Tag, error)
	TagIDsFor(ctx context.Context, resourceID uuid.UUID) ([]uuid.UUID, error)
	TagSlugsFor(ctx context.Context, resourceID uuid.UUID) ([]string, error)
}

type ResourceFilter struct {
	Status  string
	TagSlug string
	Search  string
	Offset  int
	Limit   int
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) CreateWithChildren(ctx context.Context, resource *model.Resource, files []model.ResourceFile, urls []model.ResourceURL, tagIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(resource).Error; err != nil {
			return err
		}

		for i := range files {
			files[i].ResourceID = resource.ID
			if err := tx.Create(&files[i]).Error; err != nil {
				return err
			}
		}

		for i := range urls {
			urls[i].ResourceID = resource.ID
			if err := tx.Create(&urls[i]).Error; err != nil {
				return err
			}
		}

		for _, tagID := range tagIDs {
			rt := model.ResourceTag{
				ResourceID:   resource.ID,
				TagID:        tagID,
				CreateUserID: resource.CreateUserID,
			}
			if err := tx.Create(&rt).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *resourceRepository) FindBySlug(ctx context.Context, slug string) (*model.Resource, error) {
	var resource model.Resource
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Preload("URLs").
		Where("slug = ?", slug).
		First(&resource).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepository) FindAll(ctx context.Context, filter ResourceFilter) ([]*model.Resource, int64, error) {
	var resources []*model.Resource
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Resource{})

	if filter.Status != "" {
		query = query.Where("resources.status = ?", filter.Status)
	}

	if filter.TagSlug != "" {
		tagged := r.db.Model(&model.ResourceTag{}).
			Select("resource_tags.resource_id").
			Joins("JOIN tags ON tags.id = resource_tags.tag_id").
			Where("tags.slug = ?", filter.TagSlug)
		query = query.Where("resources.id IN (?)", tagged)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(resources.title) LIKE ? OR LOWER(resources.description) LIKE ?",
			pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Files").
		Preload("URLs").
		Order("resources.created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&resources).Error; err != nil {
		return nil, 0, err
	}

	return resources, total, nil
}

func (r *resourceRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *resourceRepository) Update(ctx context.Context, resource *model.Resource) error {
	return r.db.WithContext(ctx).Save(resource).Error
}

func (r *resourceRepository) AddFile(ctx context.Context, file *model.ResourceFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *resourceRepository) FindFile(ctx context.Context, resourceID, fileID uuid.UUID) (*model.ResourceFile, error) {
	var file model.ResourceFile
	if err := r.db.WithContext(ctx).
		Where("id = ? AND resource_id = ?", fileID, resourceID).
		First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *resourceRepository) RemoveFile(ctx context.Context, fileID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ResourceFile{}, "id = ?", fileID).Error
}

func (r *resourceRepository) AddURL(ctx context.Context, url *model.ResourceURL) error {
	return r.db.WithContext(ctx).Create(url).Error
}

func (r *resourceRepository) AddTag(ctx context.Context, rt *model.ResourceTag) error {
	return r.db.WithContext(ctx).Create(rt).Error
}

func (r *resourceRepository) AddRelationship(ctx context.Context, rel *model.ResourceRelationship) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

func (r *resourceRepository) CategoriesFor(ctx context.Context, resourceID uuid.UUID) ([]*model.Category, error) {
	var categories []*model.Category
	if err := r.db.WithContext(ctx).
		Model(&model.Category{}).
		Distinct("categories.*").
		Joins("JOIN tags ON tags.category_id = categories.id").
		Joins("JOIN resource_tags ON resource_tags.tag_id = tags.id").
		Where("resource_tags.resource_id = ?", resourceID).
		Order("categories.order_by").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	for _, c := range categories {
		var tags []model.Tag
		if err := r.db.WithContext(ctx).
			Model(&model.Tag{}).
			Joins("JOIN resource_tags ON resource_tags.tag_id = tags.id").
			Where("resource_tags.resource_id = ? AND tags.category_id = ?", resourceID, c.ID).
			Order("tags.order_by").
			Find(&tags).Error; err != nil {
			return nil, err
		}
		c.Tags = tags
	}

	return categories, nil
}

func (r *resourceRepository) TagsByCategorySlug(ctx context.Context, resourceID uuid.UUID, categorySlug string) ([]*model.Tag, error) {
	var tags []*model.Tag
	if err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Joins("JOIN resource_tags ON resource_tags.tag_id = tags.id").
		Joins("JOIN categories ON categories.id = tags.category_id").
		Where("resource_tags.resource_id = ? AND categories.slug = ?", resourceID, categorySlug).
		Order("tags.order_by").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *resourceRepository) TagIDsFor(ctx context.Context, resourceID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&model.ResourceTag{}).
		Where("resource_id = ?", resourceID).
		Pluck("tag_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *resourceRepository) TagSlugsFor(ctx context.Context, resourceID uuid.UUID) ([]string, error) {
	var slugs []string
	if err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Joins("JOIN resource_tags ON resource_tags.tag_id = tags.id").
		Where("resource_tags.resource_id = ?", resourceID).
		Distinct().
		Pluck("tags.slug", &slugs).Error; err != nil {
		return nil, err
	}
	return slugs, nil
}
