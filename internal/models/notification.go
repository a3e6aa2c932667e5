package models

import (
	"time"
)

// NotificationType identifies what a notification is about.
type NotificationType string

const (
	NotificationTypeMessage             NotificationType = "message"
	NotificationTypeConversationRequest NotificationType = "conversation_request"
)

// Notification is an in-app notification record written by the dispatcher
// when a user's preferences allow in-app notifications.
type Notification struct {
	BaseModel
	UserID string           `gorm:"size:36;index" json:"userId"`
	Type   NotificationType `gorm:"size:40" json:"type"`
	Title  string           `gorm:"size:255" json:"title"`
	Body   string           `gorm:"type:text" json:"body"`
	Data   string           `gorm:"type:text" json:"data,omitempty"`
	ReadAt *time.Time       `json:"readAt,omitempty"`
}

// PushSubscription stores one device's web-push endpoint and encryption keys.
// Stale endpoints are pruned by the push sender when the push service reports
// them gone.
type PushSubscription struct {
	BaseModel
	UserID   string `gorm:"size:36;index" json:"userId"`
	Endpoint string `gorm:"size:512;uniqueIndex" json:"endpoint"`
	P256dh   string `gorm:"size:255" json:"p256dh"`
	Auth     string `gorm:"size:255" json:"auth"`
}
