package models

import (
	"time"
)

// Message represents one message in a conversation. A message is immutable
// after creation except for the DeliveredAt and ReadAt stamps, which are
// set-if-null only and never cleared. (CreatedAt, ID) is the authoritative
// ordering key within a conversation.
type Message struct {
	BaseModel
	ConversationID string     `gorm:"size:36;index:idx_conv_created" json:"conversationId"`
	SenderID       string     `gorm:"size:36;index" json:"senderId"`
	Content        string     `gorm:"type:text" json:"content"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
