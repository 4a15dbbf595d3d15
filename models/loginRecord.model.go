package models

import (
	"time"

	"govdocs/identity"

	"gorm.io/gorm"
)

type LoginOutcome string

const (
	LoginSucceeded     LoginOutcome = "success"
	LoginWrongPassword LoginOutcome = "wrong_password"
	LoginBlocked       LoginOutcome = "blocked"
	LoginRefused       LoginOutcome = "refused"
)

// LoginRecord is one sign-in attempt against a known account.
type LoginRecord struct {
	gorm.Model
	UserID    uint          `json:"user_id" gorm:"index"`
	Role      identity.Role `json:"role" gorm:"size:16"`
	Outcome   LoginOutcome  `json:"outcome" gorm:"size:20;index"`
	IPAddress string        `json:"ip_address"`
	Device    string        `json:"device"`
	At        time.Time     `json:"at" gorm:"index"`
}
