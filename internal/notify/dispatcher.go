// Package notify decides, per user and event type, between an in-app
// notification record, a push notification, or suppression, based on the
// user's preference projection. Every failure in here is logged and
// swallowed: a notification must never fail a send.
package notify

import (
	"encoding/json"
	"log"

	"gorm.io/gorm"

	"social-app-server/internal/models"
)

// PushSender delivers one payload to one stored subscription. It owns the
// pruning of subscriptions its push service reports gone.
type PushSender interface {
	SendPush(sub models.PushSubscription, payload PushPayload) error
}

// PushPayload is the body handed to the push-delivery collaborator.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Dispatcher routes notifications per user preference.
type Dispatcher struct {
	db     *gorm.DB
	push   PushSender
	appURL string
}

// NewDispatcher creates a Dispatcher. push may be nil when web push is not
// configured; the dispatcher then only writes in-app records.
func NewDispatcher(db *gorm.DB, push PushSender, appURL string) *Dispatcher {
	return &Dispatcher{db: db, push: push, appURL: appURL}
}

// Notify writes an in-app notification and attempts push delivery, subject to
// the user's preferences. Safe to call from the message pipeline's send path:
// it returns nothing and aborts nothing.
func (d *Dispatcher) Notify(userID string, typ models.NotificationType, title, body string, data map[string]string) {
	var user models.User
	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		log.Printf("notify: failed to load user %s: %v", userID, err)
		return
	}
	if !user.MessageNotificationsEnabled {
		return
	}

	encoded := ""
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			encoded = string(raw)
		}
	}
	notification := models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   encoded,
	}
	if err := d.db.Create(&notification).Error; err != nil {
		log.Printf("notify: failed to store notification for %s: %v", userID, err)
	}

	if !user.PushEnabled || d.push == nil {
		return
	}

	var subs []models.PushSubscription
	if err := d.db.Find(&subs, "user_id = ?", userID).Error; err != nil {
		log.Printf("notify: failed to load push subscriptions for %s: %v", userID, err)
		return
	}
	payload := PushPayload{Title: title, Body: body, URL: d.appURL}
	for _, sub := range subs {
		if err := d.push.SendPush(sub, payload); err != nil {
			log.Printf("notify: push to %s failed: %v", userID, err)
		}
	}
}
