package utils

import (
	"errors"
	"strconv"
	"time"

	"estatehub/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "estatehub-api"

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// TokenManager signs and parses HS256 access and refresh tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
}

// GenerateTokens generates an access token and a refresh token for the given user claims.
func (m *TokenManager) GenerateTokens(claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	if len(m.secret) == 0 {
		return "", "", ErrMissingSecret
	}

	now := m.now()
	accessClaims := models.UserClaims{
		RegisteredClaims: m.registered(claims.UserID, now, m.accessTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		Permissions:      claims.Permissions,
		TokenVersion:     claims.TokenVersion,
		TokenType:        models.TokenTypeAccess,
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(m.secret)
	if err != nil {
		return "", "", err
	}

	// Refresh tokens carry no permissions; they are re-derived on refresh.
	refreshClaims := models.UserClaims{
		RegisteredClaims: m.registered(claims.UserID, now, m.refreshTTL),
		UserID:           claims.UserID,
		Email:            claims.Email,
		Role:             claims.Role,
		TokenVersion:     claims.TokenVersion,
		TokenType:        models.TokenTypeRefresh,
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(m.secret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// AccessTTL is how long an access token stays valid.
func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *TokenManager) registered(userID uint, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
	}
}

// ParseToken validates tokenStr and returns its claims. wantType restricts
// the token type; an empty wantType accepts either.
func (m *TokenManager) ParseToken(tokenStr, wantType string) (*models.UserClaims, error) {
	if len(m.secret) == 0 {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if wantType != "" && claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
