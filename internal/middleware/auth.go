package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
)

type AuthMiddleware struct {
	userRepo repository.UserRepository
	secret   string
}

func NewAuthMiddleware(userRepo repository.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   secret,
	}
}

// authenticate resolves the actor from a Bearer token or an X-API-Key
// header. It returns the user and whether the request came in through
// the API-key path.
func (m *AuthMiddleware) authenticate(c *gin.Context) (*model.User, bool, bool) {
	if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
		user, err := m.userRepo.FindByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			return nil, true, false
		}
		return user, true, true
	}

	tokenString := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		return nil, false, false
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false, false
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, false, false
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, false, false
	}

	// A valid token for a deleted user is not an actor.
	user, err := m.userRepo.FindByID(c.Request.Context(), userID)
	if err != nil {
		return nil, false, false
	}
	return user, false, true
}

func setActor(c *gin.Context, user *model.User, apiClient bool) {
	c.Set("user_id", user.ID.String())
	c.Set("api_client", apiClient)
	c.Set("role", user.Role.Name)
}

// RequireAuth rejects requests without a valid actor.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, apiClient, ok := m.authenticate(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}
		setActor(c, user, apiClient)
		c.Next()
	}
}

// OptionalAuth resolves the actor when credentials are present but lets
// anonymous requests through; read paths track both.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, apiClient, ok := m.authenticate(c); ok {
			setActor(c, user, apiClient)
		} else if c.GetHeader("X-API-Key") != "" {
			c.Set("api_client", true)
		}
		c.Next()
	}
}

// RequireRole gates a route on the actor holding one of the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user_id"); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		actorRole := c.GetString("role")
		for _, role := range roles {
			if actorRole == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}
