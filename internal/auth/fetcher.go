package auth

import (
	"context"
	"errors"

	"github.com/nestars16/study-buddy/internal/db"
	"github.com/nestars16/study-buddy/internal/middleware"
	"gorm.io/gorm"
)

// SessionInfo implements middleware.UserFetcher against the users table.
type SessionInfo struct{}

func (si SessionInfo) FindUserBySession(ctx context.Context, sessionID string) (string, error) {
	var user User

	err := db.DB.WithContext(ctx).First(&user, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", middleware.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}

	return user.UserID, nil
}
