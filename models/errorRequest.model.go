package models

import "time"

type ErrorRequestStatus string

const (
	ErrorRequestPending             ErrorRequestStatus = "Pending"
	ErrorRequestApproved            ErrorRequestStatus = "Approved"
	ErrorRequestRejected            ErrorRequestStatus = "Rejected"
	ErrorRequestDistributorRejected ErrorRequestStatus = "Distributor Rejected"
	ErrorRequestUploaded            ErrorRequestStatus = "Uploaded"
	ErrorRequestCompleted           ErrorRequestStatus = "Completed"
)

var ErrorRequestStatuses = []ErrorRequestStatus{
	ErrorRequestPending, ErrorRequestApproved, ErrorRequestRejected,
	ErrorRequestDistributorRejected, ErrorRequestUploaded, ErrorRequestCompleted,
}

func ParseErrorRequestStatus(s string) (ErrorRequestStatus, bool) {
	for _, st := range ErrorRequestStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Open reports whether the request can still move.
func (s ErrorRequestStatus) Open() bool {
	return s == ErrorRequestPending || s == ErrorRequestApproved || s == ErrorRequestUploaded
}

type ErrorRequest struct {
	ID              uint               `json:"request_id" gorm:"primaryKey"`
	DocumentID      uint               `json:"document_id" gorm:"index;not null"`
	ApplicationID   string             `json:"application_id" gorm:"size:32;index"`
	RaisedBy        uint               `json:"raised_by" gorm:"index;not null"`
	DistributorID   *uint              `json:"distributor_id" gorm:"index"`
	Description     string             `json:"description" gorm:"type:text;not null"`
	FileName        string             `json:"file_name"`
	FileKey         string             `json:"-"`
	ContentType     string             `json:"content_type"`
	Status          ErrorRequestStatus `json:"status" gorm:"size:32;index;not null"`
	RejectionReason *string            `json:"rejection_reason" gorm:"type:text"`
	Version         uint               `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	FileURL         string             `json:"file_url,omitempty" gorm:"-"`

	Application *Application `json:"application,omitempty" gorm:"foreignKey:DocumentID"`
}
