// Package chat owns the conversation lifecycle and the message write path.
// The HTTP handlers stay thin; every invariant lives here so it can be tested
// against a real database without the transport.
package chat

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-app-server/internal/apperrors"
	"social-app-server/internal/models"
)

// Store owns conversation and participant state and enforces the status and
// visibility invariants.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateOrGetConversation is idempotent: if a conversation with exactly the
// participant pair {initiator, target} exists it is returned, otherwise a new
// one is created in PENDING with requestedBy = initiator. The second return
// reports whether a conversation was created.
func (s *Store) CreateOrGetConversation(initiatorID, targetID string) (*models.Conversation, bool, error) {
	if initiatorID == targetID {
		return nil, false, apperrors.Validation("cannot start a conversation with yourself")
	}

	var target models.User
	if err := s.db.First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperrors.NotFound("user not found")
		}
		return nil, false, apperrors.Internal("failed to look up user", err)
	}

	key := pairKey(initiatorID, targetID)
	var existing models.Conversation
	err := s.db.First(&existing, "pair_key = ?", key).Error
	if err == nil {
		conv, err := s.getConversation(existing.ID)
		if err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.Internal("failed to look up conversation", err)
	}

	conv := &models.Conversation{
		Status:      models.ConversationStatusPending,
		RequestedBy: &initiatorID,
		PairKey:     key,
	}
	created := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Insert-or-nothing on the pair key: when both users initiate at
		// once, exactly one insert lands and the loser re-fetches.
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: initiatorID},
			{ConversationID: conv.ID, UserID: targetID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, false, apperrors.Internal("failed to create conversation", err)
	}

	if !created {
		if err := s.db.First(&existing, "pair_key = ?", key).Error; err != nil {
			return nil, false, apperrors.Internal("failed to look up conversation", err)
		}
		conv, err := s.getConversation(existing.ID)
		if err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}

	conv, err = s.getConversation(conv.ID)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// pairKey is the canonical identity of a two-party conversation: both
// participant IDs in sorted order, so either direction maps to the same key.
func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}

// Accept transitions PENDING -> ACCEPTED. Resolving an already-resolved
// conversation is an idempotent no-op returning the current status.
func (s *Store) Accept(conversationID, callerID string) (models.ConversationStatus, error) {
	return s.resolve(conversationID, callerID, models.ConversationStatusAccepted)
}

// Decline transitions PENDING -> DECLINED, with the same idempotent no-op
// behavior as Accept.
func (s *Store) Decline(conversationID, callerID string) (models.ConversationStatus, error) {
	return s.resolve(conversationID, callerID, models.ConversationStatusDeclined)
}

func (s *Store) resolve(conversationID, callerID string, to models.ConversationStatus) (models.ConversationStatus, error) {
	conv, _, err := s.requireParticipant(conversationID, callerID)
	if err != nil {
		return "", err
	}
	if conv.Status != models.ConversationStatusPending {
		return conv.Status, nil
	}

	// Guarded update: two racing resolves cannot both win.
	res := s.db.Model(&models.Conversation{}).
		Where("id = ? AND status = ?", conversationID, models.ConversationStatusPending).
		Update("status", to)
	if res.Error != nil {
		return "", apperrors.Internal("failed to update conversation status", res.Error)
	}
	if res.RowsAffected == 0 {
		conv, err := s.getConversation(conversationID)
		if err != nil {
			return "", err
		}
		return conv.Status, nil
	}
	return to, nil
}

// Clear wipes the caller's visible history: clearedAt = now, and hiddenAt is
// reset since clearing supersedes hiding. Participant-local; the peer's view
// is untouched, and no message row is deleted.
func (s *Store) Clear(conversationID, callerID string) error {
	_, participant, err := s.requireParticipant(conversationID, callerID)
	if err != nil {
		return err
	}
	now := time.Now()
	err = s.db.Model(participant).Updates(map[string]interface{}{
		"cleared_at": now,
		"hidden_at":  nil,
	}).Error
	if err != nil {
		return apperrors.Internal("failed to clear conversation", err)
	}
	return nil
}

// Hide removes the conversation from the caller's list without touching
// clearedAt or the peer's view. The caller's own next send (or their own
// markRead) un-hides it; incoming messages alone do not.
func (s *Store) Hide(conversationID, callerID string) error {
	_, participant, err := s.requireParticipant(conversationID, callerID)
	if err != nil {
		return err
	}
	err = s.db.Model(participant).Update("hidden_at", time.Now()).Error
	if err != nil {
		return apperrors.Internal("failed to hide conversation", err)
	}
	return nil
}

// ConversationPreview is one row of a user's conversation list.
type ConversationPreview struct {
	Conversation models.Conversation  `json:"conversation"`
	Peer         models.UserSanitized `json:"peer"`
	LastMessage  *models.Message      `json:"lastMessage,omitempty"`
	UnreadCount  int64                `json:"unreadCount"`
}

// ListConversations returns the caller's conversation list, most recently
// updated first, with the last message visible to the caller and the count of
// unread incoming messages. A hidden conversation is listed again as soon as
// it holds messages newer than the caller's watermark: incoming messages
// never reset hiddenAt itself, they just outdate it.
func (s *Store) ListConversations(callerID string) ([]ConversationPreview, error) {
	var participations []models.ConversationParticipant
	err := s.db.
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ?", callerID).
		Order("conversations.updated_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, apperrors.Internal("failed to list conversations", err)
	}

	previews := make([]ConversationPreview, 0, len(participations))
	for _, participation := range participations {
		if participation.HiddenAt != nil {
			var newer int64
			s.visibleMessages(participation.ConversationID, &participation).Count(&newer)
			if newer == 0 {
				continue
			}
		}

		conv, err := s.getConversation(participation.ConversationID)
		if err != nil {
			continue
		}

		preview := ConversationPreview{Conversation: *conv}
		for _, p := range conv.Participants {
			if p.UserID != callerID {
				preview.Peer = p.User.Sanitize()
			}
		}

		visible := s.visibleMessages(participation.ConversationID, &participation)

		var last models.Message
		if err := visible.Order("created_at DESC, id DESC").First(&last).Error; err == nil {
			preview.LastMessage = &last
		}

		s.visibleMessages(participation.ConversationID, &participation).
			Where("sender_id <> ? AND read_at IS NULL", callerID).
			Count(&preview.UnreadCount)

		previews = append(previews, preview)
	}
	return previews, nil
}

// visibleMessages scopes a message query to the participant's visibility
// window: everything strictly after max(clearedAt, hiddenAt).
func (s *Store) visibleMessages(conversationID string, participant *models.ConversationParticipant) *gorm.DB {
	q := s.db.Model(&models.Message{}).Where("conversation_id = ?", conversationID)
	if threshold := participant.VisibilityThreshold(); threshold != nil {
		q = q.Where("created_at > ?", *threshold)
	}
	return q
}

// requireParticipant loads the conversation and the caller's participant row.
// Both "conversation does not exist" and "caller is not a participant" answer
// NotFound so non-participants cannot tell whether the conversation exists.
func (s *Store) requireParticipant(conversationID, callerID string) (*models.Conversation, *models.ConversationParticipant, error) {
	conv, err := s.getConversation(conversationID)
	if err != nil {
		return nil, nil, err
	}
	for i := range conv.Participants {
		if conv.Participants[i].UserID == callerID {
			return conv, &conv.Participants[i], nil
		}
	}
	return nil, nil, apperrors.NotFound("conversation not found")
}

func (s *Store) getConversation(conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Participants").Preload("Participants.User").
		First(&conv, "id = ?", conversationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("conversation not found")
		}
		return nil, apperrors.Internal("failed to load conversation", err)
	}
	return &conv, nil
}
