package services

import (
	"context"
	"fmt"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

type RegistrationRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterService interface {
	RegisterUser(ctx context.Context, req RegistrationRequest) (*models.User, error)
}

type RegisterServiceImpl struct {
	store *store.Store
	auth  AuthService
}

func NewRegisterService(s *store.Store, auth AuthService) *RegisterServiceImpl {
	return &RegisterServiceImpl{store: s, auth: auth}
}

// RegisterUser creates a regular-role account. Duplicate username or email
// surfaces as Conflict from the record store.
func (s *RegisterServiceImpl) RegisterUser(ctx context.Context, req RegistrationRequest) (*models.User, error) {
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters long", models.ErrValidation)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := models.NewUser(req.Username, req.Email, hash, models.RoleUser)
	if err != nil {
		return nil, err
	}

	created, err := s.store.AddUser(ctx, *user)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
