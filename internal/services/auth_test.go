package services_test

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/storage"
	"taskboard/internal/store"

	"github.com/stretchr/testify/suite"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.Store
	auth  *services.AuthServiceImpl
	users *services.UserServiceImpl

	alice *models.User
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	kv, err := storage.OpenFileKV(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store.New(kv)
	s.Require().NoError(s.store.LoadAll(s.ctx))

	// Cost 4 keeps the suite fast; production uses the configured cost.
	s.auth = services.NewAuthService(s.store, "test-secret", 15*time.Minute, time.Hour, 4)
	s.users = services.NewUserService(s.store, s.auth)

	hash, err := s.auth.HashPassword("correct-horse-battery")
	s.Require().NoError(err)
	user, err := s.store.AddUser(s.ctx, models.User{
		Username: "alice",
		Email:    "alice@example.com",
		Password: hash,
		Role:     models.RoleUser,
	})
	s.Require().NoError(err)
	s.alice = &user
}

func (s *AuthServiceSuite) TestLogin_StampsLastLogin() {
	user, err := s.auth.LoginUser(s.ctx, "alice", "correct-horse-battery")
	s.Require().NoError(err)
	s.Require().NotNil(user.LastLoginAt)

	stored, err := s.store.UserByID(user.ID)
	s.Require().NoError(err)
	s.NotNil(stored.LastLoginAt)
}

func (s *AuthServiceSuite) TestLogin_WrongPassword() {
	_, err := s.auth.LoginUser(s.ctx, "alice", "nope")
	s.ErrorIs(err, models.ErrAccessDenied)

	_, err = s.auth.LoginUser(s.ctx, "nobody", "nope")
	s.ErrorIs(err, models.ErrAccessDenied)
}

func (s *AuthServiceSuite) TestTokenRoundTrip() {
	access, refresh, err := s.auth.GenerateToken(s.ctx, s.alice)
	s.Require().NoError(err)
	s.NotEmpty(access)
	s.NotEmpty(refresh)

	newAccess, newRefresh, expiresIn, err := s.auth.RefreshToken(s.ctx, refresh)
	s.Require().NoError(err)
	s.NotEmpty(newAccess)
	s.NotEqual(refresh, newRefresh)
	s.Equal(int64((15 * time.Minute).Seconds()), expiresIn)

	// The old refresh token was rotated out.
	_, _, _, err = s.auth.RefreshToken(s.ctx, refresh)
	s.ErrorIs(err, models.ErrAccessDenied)
}

func (s *AuthServiceSuite) TestRefresh_MalformedToken() {
	_, _, _, err := s.auth.RefreshToken(s.ctx, "not-a-uuid")
	s.ErrorIs(err, models.ErrValidation)
}

func (s *AuthServiceSuite) TestRevoke() {
	_, refresh, err := s.auth.GenerateToken(s.ctx, s.alice)
	s.Require().NoError(err)

	s.Require().NoError(s.auth.RevokeToken(s.ctx, refresh))

	_, _, _, err = s.auth.RefreshToken(s.ctx, refresh)
	s.ErrorIs(err, models.ErrAccessDenied)

	// Revoking twice is harmless.
	s.NoError(s.auth.RevokeToken(s.ctx, refresh))
}

func (s *AuthServiceSuite) TestChangePassword() {
	err := s.users.ChangePassword(s.ctx, s.alice, "wrong", "new-password-123")
	s.ErrorIs(err, models.ErrAccessDenied)

	err = s.users.ChangePassword(s.ctx, s.alice, "correct-horse-battery", "short")
	s.ErrorIs(err, models.ErrValidation)

	err = s.users.ChangePassword(s.ctx, s.alice, "correct-horse-battery", "new-password-123")
	s.Require().NoError(err)

	_, err = s.auth.LoginUser(s.ctx, "alice", "new-password-123")
	s.NoError(err)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}
