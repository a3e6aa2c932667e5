package chat

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"social-app-server/internal/apperrors"
	"social-app-server/internal/models"
	"social-app-server/internal/realtime"
)

// Broadcaster is the slice of the Presence Registry the pipeline needs.
type Broadcaster interface {
	FanOut(userIDs []string, event interface{})
	IsOnline(userID string) bool
}

// Notifier is the Notification Dispatcher boundary. Implementations must
// never propagate failures back into the send path.
type Notifier interface {
	Notify(userID string, typ models.NotificationType, title, body string, data map[string]string)
}

// Pipeline validates, persists and stamps messages, then hands them to the
// fan-out and notification side effects. This is the system's core write path.
type Pipeline struct {
	db          *gorm.DB
	store       *Store
	broadcaster Broadcaster
	notifier    Notifier
}

// NewPipeline wires the pipeline to its store and side-effect collaborators.
func NewPipeline(db *gorm.DB, store *Store, broadcaster Broadcaster, notifier Notifier) *Pipeline {
	return &Pipeline{db: db, store: store, broadcaster: broadcaster, notifier: notifier}
}

// Send persists one message and triggers fan-out plus the offline
// notification fallback. The returned message carries its delivery stamp.
//
// Fan-out and notification run after the durable commit and are best-effort:
// a dropped live push is recovered only by the recipient's own next fetch.
func (p *Pipeline) Send(conversationID, senderID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("message content cannot be empty")
	}

	conv, _, err := p.store.requireParticipant(conversationID, senderID)
	if err != nil {
		return nil, err
	}
	switch conv.Status {
	case models.ConversationStatusAccepted:
	case models.ConversationStatusPending:
		return nil, apperrors.StateConflict("conversation awaiting acceptance")
	default:
		// A declined conversation answers like a missing one.
		return nil, apperrors.NotFound("conversation not found")
	}

	recipients := make([]string, 0, len(conv.Participants)-1)
	for _, participant := range conv.Participants {
		if participant.UserID != senderID {
			recipients = append(recipients, participant.UserID)
		}
	}

	// Delivered means the server has committed to delivering: stamped at
	// send time when a recipient is reachable over a live connection,
	// otherwise left for the fetch path to stamp.
	now := time.Now()
	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	anyOnline := false
	for _, recipient := range recipients {
		if p.broadcaster.IsOnline(recipient) {
			anyOnline = true
			break
		}
	}
	if len(recipients) > 0 && anyOnline {
		message.DeliveredAt = &now
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		// Sending un-hides and un-clears the conversation for the
		// sender only; the peer's watermarks stay put.
		err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, senderID).
			Updates(map[string]interface{}{"cleared_at": nil, "hidden_at": nil}).Error
		if err != nil {
			return err
		}
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return nil, apperrors.Internal("failed to send message", err)
	}
	// Live fan-out goes to recipients and to the sender's own other
	// connections, so multi-tab senders stay in sync.
	p.broadcaster.FanOut(append(recipients, senderID), realtime.Event{
		Type: realtime.EventMessageNew,
		Data: message,
	})

	// Offline recipients fall back to the notification dispatcher, outside
	// the request's failure domain.
	for _, recipient := range recipients {
		if p.broadcaster.IsOnline(recipient) {
			continue
		}
		go p.notifier.Notify(recipient, models.NotificationTypeMessage,
			"New message", content, map[string]string{"conversationId": conversationID})
	}

	return message, nil
}

// ListMessages returns the caller's visible page of a conversation, newest
// first, keyed by an opaque cursor over message id. As a side effect it
// stamps returned messages from the peer as delivered if they are not yet:
// the fallback delivery path for clients that missed the live push.
func (p *Pipeline) ListMessages(conversationID, callerID, cursor string, limit int) ([]models.Message, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	_, participant, err := p.store.requireParticipant(conversationID, callerID)
	if err != nil {
		return nil, "", err
	}

	q := p.store.visibleMessages(conversationID, participant)
	if cursor != "" {
		var anchor models.Message
		err := p.db.First(&anchor, "id = ? AND conversation_id = ?", cursor, conversationID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", apperrors.Validation("invalid cursor")
			}
			return nil, "", apperrors.Internal("failed to resolve cursor", err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	var messages []models.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, "", apperrors.Internal("failed to list messages", err)
	}

	// Delivery-on-fetch: set-if-null so a race with the live-push stamp is
	// a no-op, never a double write.
	now := time.Now()
	undelivered := make([]string, 0)
	for i := range messages {
		if messages[i].SenderID != callerID && messages[i].DeliveredAt == nil {
			undelivered = append(undelivered, messages[i].ID)
			messages[i].DeliveredAt = &now
		}
	}
	if len(undelivered) > 0 {
		err := p.db.Model(&models.Message{}).
			Where("id IN ? AND delivered_at IS NULL", undelivered).
			Update("delivered_at", now).Error
		if err != nil {
			return nil, "", apperrors.Internal("failed to stamp delivery", err)
		}
	}

	nextCursor := ""
	if len(messages) == limit {
		nextCursor = messages[len(messages)-1].ID
	}
	return messages, nextCursor, nil
}

// MarkRead stamps readAt on every unread message in the conversation that the
// caller did not author. Idempotent: already-stamped messages keep their
// original readAt. Reading also un-hides the conversation for the caller.
func (p *Pipeline) MarkRead(conversationID, callerID string) error {
	_, _, err := p.store.requireParticipant(conversationID, callerID)
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, callerID).
			Update("read_at", time.Now()).Error
		if err != nil {
			return apperrors.Internal("failed to mark messages read", err)
		}
		err = tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, callerID).
			Update("hidden_at", nil).Error
		if err != nil {
			return apperrors.Internal("failed to un-hide conversation", err)
		}
		return nil
	})
}
