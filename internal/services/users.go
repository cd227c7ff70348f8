package services

import (
	"context"
	"fmt"

	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/store"
)

// ProfilePatch updates the actor's own account; nil fields stay untouched.
type ProfilePatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

type UserService interface {
	ListUsers(actor *models.User) ([]models.User, error)
	SetRole(ctx context.Context, actor *models.User, userID int64, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, actor *models.User, userID int64) error
	UpdateProfile(ctx context.Context, actor *models.User, patch ProfilePatch) (*models.User, error)
	ChangePassword(ctx context.Context, actor *models.User, currentPassword, newPassword string) error
}

type UserServiceImpl struct {
	store *store.Store
	auth  AuthService
}

func NewUserService(s *store.Store, auth AuthService) *UserServiceImpl {
	return &UserServiceImpl{store: s, auth: auth}
}

func (s *UserServiceImpl) ListUsers(actor *models.User) ([]models.User, error) {
	if decision := policy.RequireAdmin(actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	return s.store.Users(), nil
}

// SetRole toggles a user between the two roles. An admin cannot demote
// themselves; that would strand the team without an admin mid-session.
func (s *UserServiceImpl) SetRole(ctx context.Context, actor *models.User, userID int64, role models.Role) (*models.User, error) {
	if decision := policy.RequireAdmin(actor); !decision.Allowed {
		return nil, fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}
	if userID == actor.ID && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot change your own admin role", models.ErrValidation)
	}

	user, err := s.store.UserByID(userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the account and cascades to owned/assigned tasks and
// related edit-requests.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, actor *models.User, userID int64) error {
	if decision := policy.RequireAdmin(actor); !decision.Allowed {
		return fmt.Errorf("%s: %w", decision.Reason, models.ErrAccessDenied)
	}
	if userID == actor.ID {
		return fmt.Errorf("%w: cannot delete your own account", models.ErrValidation)
	}
	return s.store.DeleteUserCascade(ctx, userID)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, actor *models.User, patch ProfilePatch) (*models.User, error) {
	user, err := s.store.UserByID(actor.ID)
	if err != nil {
		return nil, err
	}

	username := user.Username
	if patch.Username != nil {
		username = *patch.Username
	}
	email := user.Email
	if patch.Email != nil {
		email = *patch.Email
	}

	// Revalidate through the constructor, then carry the identity over.
	validated, err := models.NewUser(username, email, user.Password, user.Role)
	if err != nil {
		return nil, err
	}
	user.Username = validated.Username
	user.Email = validated.Email

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword verifies the current credential before rehashing.
func (s *UserServiceImpl) ChangePassword(ctx context.Context, actor *models.User, currentPassword, newPassword string) error {
	user, err := s.store.UserByID(actor.ID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.Password, currentPassword) {
		return fmt.Errorf("current password is incorrect: %w", models.ErrAccessDenied)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", models.ErrValidation)
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.store.UpdateUser(ctx, user)
}
