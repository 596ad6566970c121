package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/bootstrap"
	"github.com/healthorb/orb-server/internal/model"
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

func seedCategory(t *testing.T, db *gorm.DB, name string, orderBy int) *model.Category {
	t.Helper()

	category := &model.Category{
		Name:    name,
		Slug:    slugify.Slugify(name),
		OrderBy: orderBy,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func seedTag(t *testing.T, db *gorm.DB, category *model.Category, creator *model.User, name string, orderBy int) *model.Tag {
	t.Helper()

	tag := &model.Tag{
		CategoryID:   category.ID,
		Name:         name,
		Slug:         slugify.Slugify(name),
		OrderBy:      orderBy,
		CreateUserID: creator.ID,
		UpdateUserID: creator.ID,
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}
