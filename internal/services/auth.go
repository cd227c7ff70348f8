package services

import (
	"context"
	"fmt"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/store"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "taskboard"

type AuthService interface {
	LoginUser(ctx context.Context, username, password string) (*models.User, error)
	GenerateToken(ctx context.Context, user *models.User) (string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error)
	RevokeToken(ctx context.Context, refreshToken string) error
	HashPassword(plain string) (string, error)
	AccessTokenTTL() time.Duration
}

type AuthServiceImpl struct {
	store           *store.Store
	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	bcryptCost      int
}

func NewAuthService(s *store.Store, jwtSecret string, accessTTL, refreshTTL time.Duration, bcryptCost int) *AuthServiceImpl {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthServiceImpl{
		store:           s,
		jwtSecret:       []byte(jwtSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		bcryptCost:      bcryptCost,
	}
}

func (s *AuthServiceImpl) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

func (s *AuthServiceImpl) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

// LoginUser checks the credential and stamps the last-login date. The
// returned record reflects the stamped state.
func (s *AuthServiceImpl) LoginUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.UserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrAccessDenied)
	}
	if !VerifyPassword(user.Password, password) {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrAccessDenied)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GenerateToken issues a signed access token and a persisted refresh token.
func (s *AuthServiceImpl) GenerateToken(ctx context.Context, user *models.User) (string, string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"iss":     tokenIssuer,
		"exp":     time.Now().Add(s.accessTokenTTL).Unix(),
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refreshTokenUUID, err := uuid.NewV4()
	if err != nil {
		return "", "", err
	}

	session := models.Session{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       user.ID,
		RefreshToken: refreshTokenUUID,
		ExpiresAt:    time.Now().Add(s.refreshTokenTTL),
		CreatedAt:    time.Now(),
	}
	if err := s.store.AddSession(ctx, session); err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenUUID.String(), nil
}

// RefreshToken rotates a valid refresh token and returns a fresh pair.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error) {
	token, err := uuid.FromString(refreshToken)
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed refresh token: %w", models.ErrValidation)
	}

	session, err := s.store.SessionByRefreshToken(token)
	if err != nil {
		return "", "", 0, fmt.Errorf("unknown refresh token: %w", models.ErrAccessDenied)
	}
	if session.Expired(time.Now()) {
		_ = s.store.DeleteSession(ctx, session.ID)
		return "", "", 0, fmt.Errorf("expired refresh token: %w", models.ErrAccessDenied)
	}

	user, err := s.store.UserByID(session.UserID)
	if err != nil {
		return "", "", 0, err
	}

	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return "", "", 0, err
	}

	accessToken, newRefreshToken, err := s.GenerateToken(ctx, &user)
	if err != nil {
		return "", "", 0, err
	}

	return accessToken, newRefreshToken, int64(s.accessTokenTTL.Seconds()), nil
}

// RevokeToken ends the session holding the refresh token. Unknown tokens are
// treated as already revoked.
func (s *AuthServiceImpl) RevokeToken(ctx context.Context, refreshToken string) error {
	token, err := uuid.FromString(refreshToken)
	if err != nil {
		return nil
	}
	session, err := s.store.SessionByRefreshToken(token)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, session.ID)
}
