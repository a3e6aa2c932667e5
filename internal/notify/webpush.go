package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"social-app-server/internal/config"
	"social-app-server/internal/models"
)

// WebPushSender delivers payloads over the Web Push protocol using the
// configured VAPID keys. Endpoints the push service reports gone are pruned
// from storage so they are not retried forever.
type WebPushSender struct {
	db  *gorm.DB
	cfg config.WebPushConfig
}

// NewWebPushSender returns nil when no VAPID keys are configured, which
// disables push delivery without touching the dispatcher.
func NewWebPushSender(db *gorm.DB, cfg config.WebPushConfig) *WebPushSender {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil
	}
	return &WebPushSender{db: db, cfg: cfg}
}

// SendPush sends one payload to one subscription.
func (s *WebPushSender) SendPush(sub models.PushSubscription, payload PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		// Expired or unsubscribed endpoint.
		if err := s.db.Delete(&models.PushSubscription{}, "id = ?", sub.ID).Error; err != nil {
			log.Printf("notify: failed to prune stale subscription %s: %v", sub.ID, err)
		}
		return fmt.Errorf("subscription gone (status %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service answered status %d", resp.StatusCode)
	}
	return nil
}
