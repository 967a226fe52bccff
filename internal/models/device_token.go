package models

import (
	"gorm.io/gorm"
)

// DeviceToken stores an FCM registration token for push notifications
type DeviceToken struct {
	gorm.Model
	UserID   uint   `json:"userId" gorm:"not null;index"`
	Token    string `json:"token" gorm:"unique;not null"`
	Platform string `json:"platform"` // ios, android, web
}
