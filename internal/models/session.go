package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Session records an issued refresh token. Expired sessions are swept by the
// auth service on each refresh.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       int64     `json:"user_id"`
	RefreshToken uuid.UUID `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
