package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/bootstrap"
	"github.com/healthorb/orb-server/internal/middleware"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func setup(t *testing.T) (*gorm.DB, *middleware.AuthMiddleware, *model.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))
	require.NoError(t, bootstrap.SeedRoles(db))

	var role model.Role
	require.NoError(t, db.Where("name = ?", model.RoleReviewer).First(&role).Error)

	user := &model.User{
		Username:     "maria",
		Email:        "maria@example.org",
		PasswordHash: "x",
		APIKey:       uuid.NewString(),
		RoleID:       &role.ID,
	}
	require.NoError(t, db.Create(user).Error)

	return db, middleware.NewAuthMiddleware(repository.NewUserRepository(db), testSecret), user
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func echoActor(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    c.GetString("user_id"),
		"api_client": c.GetBool("api_client"),
		"role":       c.GetString("role"),
	})
}

func TestRequireAuthWithBearerToken(t *testing.T) {
	_, auth, user := setup(t)

	router := gin.New()
	router.GET("/x", auth.RequireAuth(), echoActor)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
	assert.Contains(t, w.Body.String(), `"api_client":false`)
	assert.Contains(t, w.Body.String(), `"role":"reviewer"`)
}

func TestRequireAuthWithAPIKey(t *testing.T) {
	_, auth, user := setup(t)

	router := gin.New()
	router.GET("/x", auth.RequireAuth(), echoActor)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-Key", user.APIKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
	assert.Contains(t, w.Body.String(), `"api_client":true`)
}

func TestRequireAuthRejectsMissingAndBadCredentials(t *testing.T) {
	_, auth, _ := setup(t)

	router := gin.New()
	router.GET("/x", auth.RequireAuth(), echoActor)

	for name, set := range map[string]func(*http.Request){
		"no credentials":        func(r *http.Request) {},
		"wrong api key":         func(r *http.Request) { r.Header.Set("X-API-Key", "nope") },
		"garbage token":         func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		"token for absent user": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New())) },
	} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		set(req)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	_, auth, user := setup(t)

	router := gin.New()
	router.GET("/x", auth.OptionalAuth(), echoActor)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-Key", user.APIKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
}

func TestRequireRole(t *testing.T) {
	_, auth, user := setup(t)

	router := gin.New()
	router.GET("/review", auth.RequireAuth(), auth.RequireRole(model.RoleAdmin, model.RoleReviewer), echoActor)
	router.GET("/admin", auth.RequireAuth(), auth.RequireRole(model.RoleAdmin), echoActor)

	req := httptest.NewRequest(http.MethodGet, "/review", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The user is a reviewer, not an admin.
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
