package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationStatus string

const (
	NotificationActive   NotificationStatus = "Active"
	NotificationInactive NotificationStatus = "Inactive"
)

type Notification struct {
	gorm.Model
	DistributorText string             `json:"distributor_text" gorm:"type:text;default:''"`
	CustomerText    string             `json:"customer_text" gorm:"type:text;default:''"`
	Status          NotificationStatus `json:"status" gorm:"size:16;index;default:'Active'"`
	Date            time.Time          `json:"date"`
}
