package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token  string      `json:"token"`
	APIKey string      `json:"api_key,omitempty"`
	User   *model.User `json:"user"`
}

type UpdateProfileInput struct {
	OrganisationSlug *string `json:"organisation_slug,omitempty"`
	JobTitle         *string `json:"job_title,omitempty"`
	About            *string `json:"about,omitempty"`
	PhoneNumber      *string `json:"phone_number,omitempty"`
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*model.UserProfile, error)
	CountUsers(ctx context.Context) (int64, error)
}

type userService struct {
	userRepo repository.UserRepository
	tagRepo  repository.TagRepository
	secret   string
	tokenTTL time.Duration
	db       *gorm.DB
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, tagRepo repository.TagRepository, secret string, tokenTTL time.Duration) UserService {
	return &userService{
		userRepo: userRepo,
		tagRepo:  tagRepo,
		secret:   secret,
		tokenTTL: tokenTTL,
		db:       db,
	}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var role model.Role
	if err := s.db.WithContext(ctx).Where("name = ?", model.RoleContributor).First(&role).Error; err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashed),
		// The account-creation hook: every new account gets an API key
		// here, rather than via a save-signal side channel.
		APIKey: uuid.NewString(),
		RoleID: &role.ID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &model.UserProfile{UserID: user.ID}
	if err := s.userRepo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	user.Profile = profile
	user.Role = role

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, APIKey: user.APIKey, User: user}, nil
}

func (s *userService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: user}, nil
}

func (s *userService) signToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*model.UserProfile, error) {
	profile, err := s.userRepo.FindProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		profile = &model.UserProfile{UserID: userID}
	}

	if input.OrganisationSlug != nil {
		org, err := s.tagRepo.FindBySlug(ctx, *input.OrganisationSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.ErrNotFound
			}
			return nil, err
		}
		if org.Category.Slug != CategoryOrganisation {
			return nil, apperror.New(0, "tag is not an organisation", apperror.ErrInvalidInput)
		}
		profile.OrganisationID = &org.ID
	}
	if input.JobTitle != nil {
		profile.JobTitle = input.JobTitle
	}
	if input.About != nil {
		profile.About = input.About
	}
	if input.PhoneNumber != nil {
		profile.PhoneNumber = input.PhoneNumber
	}

	if err := s.userRepo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *userService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}
