package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"
	"estatehub/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Result, error)
	Login(ctx context.Context, email, password string) (*Result, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*Result, error)

	// Authenticate parses an access token and checks it against the user's
	// current token version.
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"omitempty,oneof=seeker agent"`
}

// Profile is the public view of a user.
type Profile struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Role    string `json:"role"`
	Credits int    `json:"credits"`
}

func NewProfile(u *models.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role, Credits: u.Credits}
}

type Result struct {
	User         Profile `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
}

type service struct {
	users  repositories.UserRepository
	tokens *utils.TokenManager
	logger *zap.Logger
	cost   int
}

func NewService(users repositories.UserRepository, tokens *utils.TokenManager, logger *zap.Logger) Service {
	if users == nil || tokens == nil {
		panic("user repository and token manager are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		users:  users,
		tokens: tokens,
		logger: logger.Named("auth"),
		cost:   bcrypt.DefaultCost,
	}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	role := in.Role
	if role == "" {
		role = models.RoleSeeker
	}
	if role != models.RoleSeeker && role != models.RoleAgent {
		return nil, apperrors.ErrInvalidInput.WithMessage("role must be seeker or agent")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Password:     string(hashed),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         role,
		Status:       "active",
		TokenVersion: 1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", role))
	return s.issue(user)
}

func (s *service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.Debug("login failed: unknown email")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Debug("login failed: wrong password", zap.Uint("user_id", user.ID))
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Status != "" && user.Status != "active" {
		return nil, apperrors.ErrForbidden.WithMessage("account is " + user.Status)
	}

	if err := s.users.TouchLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return s.issue(user)
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := s.tokens.ParseToken(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithMessage("invalid refresh token")
	}
	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	claims, err := s.tokens.ParseToken(accessToken, models.TokenTypeAccess)
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithMessage("invalid token")
	}
	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	// Role changes take effect without a new login.
	claims.Role = user.Role
	claims.Permissions = models.GetDefaultPermissions(user.Role)
	return claims, nil
}

func (s *service) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *service) currentUser(ctx context.Context, claims *models.UserClaims) (*models.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized.WithMessage("invalid token")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, apperrors.ErrUnauthorized.WithMessage("session expired")
	}
	return user, nil
}

func (s *service) issue(user *models.User) (*Result, error) {
	access, refresh, err := s.tokens.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &Result{
		User:         NewProfile(user),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
