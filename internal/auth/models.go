package auth

// User owns at most one live session: SessionID is nil when logged out and
// holds the current token otherwise. A token that matches no row is invalid.
type User struct {
	UserID         string  `gorm:"primaryKey" json:"user_id"`
	Email          string  `gorm:"uniqueIndex;not null" json:"email"`
	Password       string  `json:"password" gorm:"-"`
	HashedPassword string  `json:"-"`
	SessionID      *string `gorm:"uniqueIndex" json:"-"`
}

func (User) TableName() string { return "app_auth.users" }
