package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func newUserService(t *testing.T, db *gorm.DB) service.UserService {
	t.Helper()
	return service.NewUserService(db,
		repository.NewUserRepository(db),
		repository.NewTagRepository(db),
		testSecret, time.Hour)
}

func TestRegisterCreatesContributorWithAPIKey(t *testing.T) {
	db := newTestDB(t)
	users := newUserService(t, db)

	auth, err := users.Register(context.Background(), service.RegisterInput{
		Username: "maria",
		Email:    "maria@example.org",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, auth.Token)
	assert.NotEmpty(t, auth.APIKey)
	assert.Equal(t, model.RoleContributor, auth.User.Role.Name)
	require.NotNil(t, auth.User.Profile)

	// The token identifies the new account.
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(auth.Token, claims, func(tok *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, auth.User.ID.String(), claims.Subject)
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	users := newUserService(t, db)

	_, err := users.Register(context.Background(), service.RegisterInput{
		Username: "maria",
		Email:    "maria@example.org",
		Password: "correct horse",
	})
	require.NoError(t, err)

	auth, err := users.Login(context.Background(), service.LoginInput{
		Email:    "maria@example.org",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	_, err = users.Login(context.Background(), service.LoginInput{
		Email:    "maria@example.org",
		Password: "wrong",
	})
	assert.EqualError(t, err, "invalid credentials")

	_, err = users.Login(context.Background(), service.LoginInput{
		Email:    "nobody@example.org",
		Password: "whatever",
	})
	assert.EqualError(t, err, "invalid credentials")
}

func TestUpdateProfileOrganisationMustBeOrganisationTag(t *testing.T) {
	db := newTestDB(t)
	users := newUserService(t, db)
	creator := seedUser(t, db, "admin")

	auth, err := users.Register(context.Background(), service.RegisterInput{
		Username: "maria",
		Email:    "maria@example.org",
		Password: "correct horse",
	})
	require.NoError(t, err)

	who := seedTagIn(t, db, service.CategoryOrganisation, "WHO", creator)
	diabetes := seedTagIn(t, db, service.CategoryHealthTopic, "Diabetes", creator)

	_, err = users.UpdateProfile(context.Background(), auth.User.ID, service.UpdateProfileInput{
		OrganisationSlug: &diabetes.Slug,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	jobTitle := "CHW trainer"
	profile, err := users.UpdateProfile(context.Background(), auth.User.ID, service.UpdateProfileInput{
		OrganisationSlug: &who.Slug,
		JobTitle:         &jobTitle,
	})
	require.NoError(t, err)
	require.NotNil(t, profile.OrganisationID)
	assert.Equal(t, who.ID, *profile.OrganisationID)
	require.NotNil(t, profile.JobTitle)
	assert.Equal(t, "CHW trainer", *profile.JobTitle)
}

func TestCountUsers(t *testing.T) {
	db := newTestDB(t)
	users := newUserService(t, db)
	seedUser(t, db, "a")
	seedUser(t, db, "b")

	count, err := users.CountUsers(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
