package service_test

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/bootstrap"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/slugify"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))
	require.NoError(t, bootstrap.SeedRoles(db))
	require.NoError(t, bootstrap.SeedCategories(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	user := &model.User{
		Username:     username,
		Email:        username + "@example.org",
		PasswordHash: "x",
		APIKey:       uuid.NewString(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedTagIn(t *testing.T, db *gorm.DB, categorySlug, name string, creator *model.User) *model.Tag {
	t.Helper()

	var category model.Category
	require.NoError(t, db.Where("slug = ?", categorySlug).First(&category).Error)

	tag := &model.Tag{
		CategoryID:   category.ID,
		Name:         name,
		Slug:         slugify.Slugify(name),
		CreateUserID: creator.ID,
		UpdateUserID: creator.ID,
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// fakeStorage records uploads and deletes and hands back deterministic
// URLs.
type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
	deleted []string
}

func (f *fakeStorage) UploadFile(ctx context.Context, file io.Reader, kind, fileName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, kind+"/"+fileName)
	return "https://cdn.test/" + kind + "/" + fileName, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, fileURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileURL)
	return nil
}

// fakeSearch records index membership by resource ID.
type fakeSearch struct {
	mu      sync.Mutex
	indexed map[string][]string
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{indexed: map[string][]string{}}
}

func (f *fakeSearch) IndexResource(resource *model.Resource, tagSlugs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[resource.ID.String()] = tagSlugs
	return nil
}

func (f *fakeSearch) RemoveResource(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func (f *fakeSearch) Search(query, tagSlug string, offset, limit int) (*service.SearchResults, error) {
	return &service.SearchResults{}, nil
}

func (f *fakeSearch) contains(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexed[id.String()]
	return ok
}

// newResourceStack wires the submission path against a test database.
func newResourceStack(t *testing.T, db *gorm.DB) (service.ResourceService, service.ModerationService, *fakeStorage, *fakeSearch) {
	t.Helper()

	resourceRepo := repository.NewResourceRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	trackerRepo := repository.NewTrackerRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	tagSvc := service.NewTagService(categoryRepo, tagRepo)
	trackerSvc := service.NewTrackerService(trackerRepo)
	validator := service.NewSubmissionValidator(tagSvc, service.UploadPolicy{
		AllowedTypes: []string{"image", "video", "audio", "application", "text"},
		MaxBytes:     1024 * 1024,
	})

	storage := &fakeStorage{}
	search := newFakeSearch()
	resourceSvc := service.NewResourceService(resourceRepo, ratingRepo, validator, tagSvc, trackerSvc, storage)
	moderationSvc := service.NewModerationService(resourceRepo, search)
	return resourceSvc, moderationSvc, storage, search
}
