package models

import "time"

// Certificate is bound 1:1 to an application; re-issuing replaces the file
// but keeps the row, id and number.
type Certificate struct {
	ID                uint      `json:"certificate_id" gorm:"primaryKey"`
	DocumentID        uint      `json:"document_id" gorm:"uniqueIndex;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"uniqueIndex;size:64;not null"`
	FileKey           string    `json:"-" gorm:"not null"`
	FileName          string    `json:"file_name"`
	ContentType       string    `json:"content_type"`
	Size              int64     `json:"size"`
	IssuedBy          uint      `json:"issued_by" gorm:"index"`
	IssuedAt          time.Time `json:"issued_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	URL               string    `json:"url,omitempty" gorm:"-"`
}
