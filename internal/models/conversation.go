package models

import (
	"time"
)

// ConversationStatus represents the lifecycle state of a conversation.
// The only legal transitions are pending -> accepted and pending -> declined.
type ConversationStatus string

const (
	ConversationStatusPending  ConversationStatus = "pending"
	ConversationStatusAccepted ConversationStatus = "accepted"
	ConversationStatusDeclined ConversationStatus = "declined"
)

// Conversation is a fixed-participant messaging thread. UpdatedAt is bumped
// on every new message and drives conversation-list ordering. PairKey is the
// sorted participant pair; its unique index makes conversation creation safe
// when both users initiate at the same time.
type Conversation struct {
	BaseModel
	Status      ConversationStatus `gorm:"size:20;default:'pending';index" json:"status"`
	RequestedBy *string            `gorm:"size:36" json:"requestedBy,omitempty"`
	PairKey     string             `gorm:"size:80;uniqueIndex" json:"-"`

	// Relations
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationParticipant is the (conversation, user) membership row.
// ClearedAt and HiddenAt are independent per-participant visibility
// watermarks: messages created at or before max(ClearedAt, HiddenAt) are
// invisible to this participant only. Message rows are never deleted.
type ConversationParticipant struct {
	BaseModel
	ConversationID string     `gorm:"size:36;uniqueIndex:uk_conv_user;index" json:"conversationId"`
	UserID         string     `gorm:"size:36;uniqueIndex:uk_conv_user;index" json:"userId"`
	ClearedAt      *time.Time `json:"clearedAt,omitempty"`
	HiddenAt       *time.Time `json:"hiddenAt,omitempty"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// VisibilityThreshold returns the participant's effective watermark:
// max(ClearedAt, HiddenAt), or nil when neither is set.
func (p *ConversationParticipant) VisibilityThreshold() *time.Time {
	threshold := p.ClearedAt
	if p.HiddenAt != nil && (threshold == nil || p.HiddenAt.After(*threshold)) {
		threshold = p.HiddenAt
	}
	return threshold
}
