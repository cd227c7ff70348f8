package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/internal/handlers"
	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/gin-gonic/gin"
)

type MockUserService struct {
	users          []models.User
	returnDenied   bool
	passwordWrong  bool
	deletedUserID  int64
	updatedProfile bool
}

func (m *MockUserService) ListUsers(actor *models.User) ([]models.User, error) {
	if m.returnDenied {
		return nil, fmt.Errorf("administrator role required: %w", models.ErrAccessDenied)
	}
	return m.users, nil
}

func (m *MockUserService) SetRole(ctx context.Context, actor *models.User, userID int64, role models.Role) (*models.User, error) {
	if m.returnDenied {
		return nil, fmt.Errorf("administrator role required: %w", models.ErrAccessDenied)
	}
	if userID == actor.ID && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot change your own admin role", models.ErrValidation)
	}
	return &models.User{ID: userID, Username: "carol", Role: role}, nil
}

func (m *MockUserService) DeleteUser(ctx context.Context, actor *models.User, userID int64) error {
	if m.returnDenied {
		return fmt.Errorf("administrator role required: %w", models.ErrAccessDenied)
	}
	m.deletedUserID = userID
	return nil
}

func (m *MockUserService) UpdateProfile(ctx context.Context, actor *models.User, patch services.ProfilePatch) (*models.User, error) {
	m.updatedProfile = true
	user := *actor
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	return &user, nil
}

func (m *MockUserService) ChangePassword(ctx context.Context, actor *models.User, currentPassword, newPassword string) error {
	if m.passwordWrong {
		return fmt.Errorf("current password is incorrect: %w", models.ErrAccessDenied)
	}
	return nil
}

func setupUserHandler(actor *models.User) (*handlers.UserHandler, *MockUserService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockUserService{}
	handler := handlers.NewUserHandler(mockService)
	router := gin.New()
	router.Use(actingAs(actor))
	return handler, mockService, router
}

func TestListUsersAsAdmin(t *testing.T) {
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	handler, mockService, router := setupUserHandler(admin)
	mockService.users = []models.User{
		{ID: 1, Username: "root", Role: models.RoleAdmin},
		{ID: 2, Username: "alice", Role: models.RoleUser},
	}
	router.GET("/users", handler.List)

	req, _ := http.NewRequest("GET", "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("Expected 2 users, got %d", resp.Count)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("User listing must not expose password fields")
	}
}

func TestListUsersDenied(t *testing.T) {
	user := &models.User{ID: 2, Username: "alice", Role: models.RoleUser}
	handler, mockService, router := setupUserHandler(user)
	mockService.returnDenied = true
	router.GET("/users", handler.List)

	req, _ := http.NewRequest("GET", "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestSetRole(t *testing.T) {
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	handler, _, router := setupUserHandler(admin)
	router.PUT("/users/:id/role", handler.SetRole)

	body, _ := json.Marshal(handlers.SetRoleInput{Role: models.RoleAdmin})
	req, _ := http.NewRequest("PUT", "/users/3/role", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestSetRoleSelfDemotion(t *testing.T) {
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	handler, _, router := setupUserHandler(admin)
	router.PUT("/users/:id/role", handler.SetRole)

	body, _ := json.Marshal(handlers.SetRoleInput{Role: models.RoleUser})
	req, _ := http.NewRequest("PUT", "/users/1/role", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	handler, mockService, router := setupUserHandler(admin)
	router.DELETE("/users/:id", handler.Delete)

	req, _ := http.NewRequest("DELETE", "/users/4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mockService.deletedUserID != 4 {
		t.Errorf("Expected delete of user 4, got %d", mockService.deletedUserID)
	}
}

func TestGetProfile(t *testing.T) {
	user := &models.User{ID: 2, Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	handler, _, router := setupUserHandler(user)
	router.GET("/profile", handler.Profile)

	req, _ := http.NewRequest("GET", "/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp handlers.UserProfileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Username != "alice" {
		t.Errorf("Expected alice, got %q", resp.Username)
	}
}

func TestUpdateProfile(t *testing.T) {
	user := &models.User{ID: 2, Username: "alice", Role: models.RoleUser}
	handler, mockService, router := setupUserHandler(user)
	router.PUT("/profile", handler.UpdateProfile)

	req, _ := http.NewRequest("PUT", "/profile", bytes.NewBuffer([]byte(`{"email":"new@example.com"}`)))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !mockService.updatedProfile {
		t.Error("Expected profile update to reach the service")
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	user := &models.User{ID: 2, Username: "alice", Role: models.RoleUser}
	handler, mockService, router := setupUserHandler(user)
	mockService.passwordWrong = true
	router.PUT("/profile/password", handler.ChangePassword)

	body, _ := json.Marshal(handlers.ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "longenough1"})
	req, _ := http.NewRequest("PUT", "/profile/password", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}
