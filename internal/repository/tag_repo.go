package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"gorm.io/gorm"
)

type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	FindBySlug(ctx context.Context, slug string) (*model.Tag, error)
	FindByCategorySlug(ctx context.Context, categorySlug string) ([]*model.Tag, error)
	// FindByNameInCategory matches case-insensitively on the display name.
	FindByNameInCategory(ctx context.Context, categoryID uuid.UUID, name string) (*model.Tag, error)
	FindChildren(ctx context.Context, parentID uuid.UUID) ([]*model.Tag, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

func (r *tagRepository) FindBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("slug = ?", slug).
		First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) FindByCategorySlug(ctx context.Context, categorySlug string) ([]*model.Tag, error) {
	var tags []*model.Tag
	if err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Joins("JOIN categories ON categories.id = tags.category_id").
		Where("categories.slug = ?", categorySlug).
		Order("tags.order_by").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) FindByNameInCategory(ctx context.Context, categoryID uuid.UUID, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).
		Where("category_id = ? AND LOWER(name) = LOWER(?)", categoryID, name).
		First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) FindChildren(ctx context.Context, parentID uuid.UUID) ([]*model.Tag, error) {
	var tags []*model.Tag
	if err := r.db.WithContext(ctx).
		Where("parent_tag_id = ?", parentID).
		Order("order_by").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
