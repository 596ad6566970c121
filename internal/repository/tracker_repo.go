package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"gorm.io/gorm"
)

// TrackerRepository writes append-only access and search log rows. There is
// deliberately no update or delete surface: tracker rows are immutable.
type TrackerRepository interface {
	CreateAccess(ctx context.Context, row *model.ResourceTracker) error
	CreateSearch(ctx context.Context, row *model.SearchTracker) error
	// HitCounts returns distinct anonymous IPs and distinct identified
	// users that accessed the resource. The two counts are independent.
	HitCounts(ctx context.Context, resourceID uuid.UUID) (anon int64, identified int64, err error)
	// LocationByIP returns nil, nil when no location row is known.
	LocationByIP(ctx context.Context, ip string) (*model.UserLocation, error)
	Locations(ctx context.Context, limit int) ([]*model.UserLocation, error)
}

type trackerRepository struct {
	db *gorm.DB
}

func NewTrackerRepository(db *gorm.DB) TrackerRepository {
	return &trackerRepository{db: db}
}

func (r *trackerRepository) CreateAccess(ctx context.Context, row *model.ResourceTracker) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *trackerRepository) CreateSearch(ctx context.Context, row *model.SearchTracker) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *trackerRepository) HitCounts(ctx context.Context, resourceID uuid.UUID) (int64, int64, error) {
	var anon, identified int64

	if err := r.db.WithContext(ctx).
		Model(&model.ResourceTracker{}).
		Where("resource_id = ? AND user_id IS NULL", resourceID).
		Distinct("ip").
		Count(&anon).Error; err != nil {
		return 0, 0, err
	}

	if err := r.db.WithContext(ctx).
		Model(&model.ResourceTracker{}).
		Where("resource_id = ? AND user_id IS NOT NULL", resourceID).
		Distinct("user_id").
		Count(&identified).Error; err != nil {
		return 0, 0, err
	}

	return anon, identified, nil
}

func (r *trackerRepository) LocationByIP(ctx context.Context, ip string) (*model.UserLocation, error) {
	var loc model.UserLocation
	err := r.db.WithContext(ctx).Where("ip = ?", ip).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *trackerRepository) Locations(ctx context.Context, limit int) ([]*model.UserLocation, error) {
	var locs []*model.UserLocation
	if err := r.db.WithContext(ctx).
		Order("hits DESC").
		Limit(limit).
		Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}
