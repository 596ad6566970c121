package bootstrap

import (
	"log"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/pkg/slugify"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.UserProfile{},
		&model.Category{},
		&model.Tag{},
		&model.Resource{},
		&model.ResourceFile{},
		&model.ResourceURL{},
		&model.ResourceRelationship{},
		&model.ResourceTag{},
		&model.ResourceTracker{},
		&model.SearchTracker{},
		&model.UserLocation{},
		&model.ResourceRating{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []model.Role{
		{Name: model.RoleAdmin, Description: "Full moderation and taxonomy control"},
		{Name: model.RoleReviewer, Description: "Reviews pending resources"},
		{Name: model.RoleContributor, Description: "Submits resources"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&model.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedCategories installs the fixed taxonomy groups the submission form
// is built around. Top-level categories are the ones browsable from the
// home page.
func SeedCategories(db *gorm.DB) error {
	defaultCategories := []model.Category{
		{Name: "Organisation", TopLevel: false, OrderBy: 0},
		{Name: "Health Topic", TopLevel: true, OrderBy: 1},
		{Name: "Type", TopLevel: true, OrderBy: 2},
		{Name: "Audience", TopLevel: true, OrderBy: 3},
		{Name: "Geography", TopLevel: true, OrderBy: 4},
		{Name: "Device", TopLevel: true, OrderBy: 5},
		{Name: "License", TopLevel: false, OrderBy: 6},
		{Name: "Other", TopLevel: false, OrderBy: 7},
	}

	for _, category := range defaultCategories {
		category.Slug = slugify.Slugify(category.Name)

		var count int64
		if err := db.Model(&model.Category{}).
			Where("slug = ?", category.Slug).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&category).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB) error {
	var adminRole model.Role
	if err := db.Where("name = ?", model.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@orb.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "admin123"
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:     "admin",
		Email:        "admin@orb.local",
		PasswordHash: string(hashedPasswordBytes),
		APIKey:       uuid.NewString(),
		RoleID:       &adminRole.ID,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	adminProfile := model.UserProfile{
		UserID: adminUser.ID,
	}
	if err := db.Create(&adminProfile).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded")
	log.Println("   Email: admin@orb.local")
	log.Println("   Password: admin123")

	return nil
}
