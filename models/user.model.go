package models

import (
	"time"

	"govdocs/identity"

	"gorm.io/gorm"
)

type LoginStatus string

const (
	LoginActive   LoginStatus = "Active"
	LoginInactive LoginStatus = "Inactive"
	// LoginApprove marks a self-registered distributor waiting for admin activation.
	LoginApprove LoginStatus = "Approve"
)

func (s LoginStatus) Valid() bool {
	return s == LoginActive || s == LoginInactive || s == LoginApprove
}

type User struct {
	gorm.Model
	Name                string        `json:"name" gorm:"default:''"`
	Email               string        `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Phone               string        `json:"phone" gorm:"default:''"`
	Address             string        `json:"address" gorm:"type:text;default:''"`
	City                string        `json:"city" gorm:"default:''"`
	Country             string        `json:"country" gorm:"default:''"`
	Role                identity.Role `json:"role" gorm:"size:16;index;not null"`
	LoginStatus         LoginStatus   `json:"login_status" gorm:"size:16;index;default:'Active'"`
	Password            string        `json:"-" gorm:"not null"`
	LastLogin           *time.Time    `json:"last_login"`
	FailedLoginAttempts int           `json:"-" gorm:"default:0"`
	LastFailedLogin     *time.Time    `json:"-"`
	BlockedUntil        *time.Time    `json:"-"`

	Documents []UserDocument `json:"documents,omitempty" gorm:"foreignKey:UserID"`
}

// Identity returns the role-bearing identity a token is minted from.
func (u User) Identity() identity.Identity {
	return identity.Identity{UserID: u.ID, Role: u.Role, Email: u.Email}
}

// UserDocument is an identity proof uploaded to a user's profile.
type UserDocument struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"index;not null"`
	Label       string `json:"label" gorm:"not null"`
	FileName    string `json:"file_name"`
	FileKey     string `json:"-" gorm:"not null"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty" gorm:"-"`
}
