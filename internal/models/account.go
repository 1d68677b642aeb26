package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

// Account is the root identity record. PasswordHash is nil for accounts that
// were created through social login only.
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex:idx_accounts_email" json:"email"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Avatar       *string   `gorm:"size:1024" json:"avatar,omitempty"`
	PasswordHash *string   `json:"-"`
	Role         Role      `gorm:"size:20;not null;default:'user'" json:"role"`
	Status       Status    `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	SocialIdentities []SocialIdentity `gorm:"foreignKey:AccountID" json:"-"`
}

// HasPassword reports whether the account can log in with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
