package models

import (
	"time"

	"gorm.io/datatypes"
)

type ApplicationStatus string

const (
	StatusPending             ApplicationStatus = "Pending"
	StatusApproved            ApplicationStatus = "Approved"
	StatusRejected            ApplicationStatus = "Rejected"
	StatusUploaded            ApplicationStatus = "Uploaded"
	StatusDistributorRejected ApplicationStatus = "Distributor Rejected"
	StatusCompleted           ApplicationStatus = "Completed"
)

var ApplicationStatuses = []ApplicationStatus{
	StatusPending, StatusApproved, StatusRejected, StatusUploaded, StatusDistributorRejected, StatusCompleted,
}

func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	for _, st := range ApplicationStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Application is keyed by ID (the document id); ApplicationID is the
// separately sequenced display id shown to citizens.
type Application struct {
	ID              uint                                  `json:"document_id" gorm:"primaryKey"`
	ApplicationID   string                                `json:"application_id" gorm:"uniqueIndex;size:32;not null"`
	OwnerID         uint                                  `json:"owner_user_id" gorm:"index;not null"`
	CategoryID      uint                                  `json:"category_id" gorm:"index;not null"`
	SubcategoryID   uint                                  `json:"subcategory_id" gorm:"index;not null"`
	FieldValues     datatypes.JSONType[map[string]string] `json:"field_values"`
	Name            string                                `json:"name"`
	Email           string                                `json:"email"`
	Phone           string                                `json:"phone"`
	Address         string                                `json:"address" gorm:"type:text"`
	Status          ApplicationStatus                     `json:"status" gorm:"size:32;index;not null"`
	DistributorID   *uint                                 `json:"distributor_id" gorm:"index"`
	RejectionReason *string                               `json:"rejection_reason" gorm:"type:text"`
	Version         uint                                  `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time                             `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time                             `json:"updated_at"`

	Category    *Category         `json:"category,omitempty"`
	Subcategory *Subcategory      `json:"subcategory,omitempty"`
	Files       []ApplicationFile `json:"files,omitempty" gorm:"foreignKey:DocumentID"`
	Certificate *Certificate      `json:"certificate,omitempty" gorm:"foreignKey:DocumentID"`
}

type ApplicationFile struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DocumentID  uint      `json:"document_id" gorm:"index;not null"`
	Label       string    `json:"label" gorm:"not null"`
	FileName    string    `json:"file_name"`
	FileKey     string    `json:"file_key" gorm:"not null"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url,omitempty" gorm:"-"`
}

// ApplicationStatusEvent is one row of an application's append-only history.
type ApplicationStatusEvent struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DocumentID uint      `json:"document_id" gorm:"index;not null"`
	Action     string    `json:"action" gorm:"size:32"`
	FromStatus string    `json:"from_status" gorm:"size:32"`
	ToStatus   string    `json:"to_status" gorm:"size:32"`
	ActorID    uint      `json:"actor_id"`
	ActorRole  string    `json:"actor_role" gorm:"size:16"`
	Reason     string    `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sequence backs human-facing counters such as application ids.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null;default:0"`
}
