package notification

import (
	"context"
	"log"
	"time"

	authrepo "mailboard-backend/internal/auth/repository"
	emaildomain "mailboard-backend/internal/email/domain"
	"mailboard-backend/pkg/fcm"
	"mailboard-backend/pkg/realtime"
)

const (
	EventEmailRestored = "email_restored"
	EventEmailUpdate   = "email_update"

	pushTimeout = 10 * time.Second
)

// PushSender delivers device push notifications
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// RestoreNotifier tells a user's clients that a snoozed email came back
type RestoreNotifier struct {
	hub     *realtime.Hub
	fcmRepo authrepo.FCMTokenRepository
	push    PushSender
}

// NewRestoreNotifier builds a notifier. push may be nil, then only connected clients are told.
func NewRestoreNotifier(hub *realtime.Hub, fcmRepo authrepo.FCMTokenRepository, push PushSender) *RestoreNotifier {
	return &RestoreNotifier{
		hub:     hub,
		fcmRepo: fcmRepo,
		push:    push,
	}
}

// PublishRestored publishes to the owner's topic only
func (n *RestoreNotifier) PublishRestored(userID string, event emaildomain.RestoredEvent) {
	delivered := n.hub.Publish(userID, realtime.Message{Event: EventEmailRestored, Data: event})
	log.Printf("[Notifier] Email %s restored to %s, delivered to %d connections of user %s", event.EmailID, event.ColumnID, delivered, userID)

	if n.push != nil && n.fcmRepo != nil {
		go n.sendPush(userID, event)
	}
}

func (n *RestoreNotifier) sendPush(userID string, event emaildomain.RestoredEvent) {
	tokens, err := n.fcmRepo.ListTokens(userID)
	if err != nil {
		log.Printf("[FCM] Error getting FCM tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	stale, err := n.push.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title: "A snoozed email is back",
		Body:  "An email you snoozed has returned to your board",
		Data: map[string]string{
			"type":      EventEmailRestored,
			"email_id":  event.EmailID,
			"column_id": event.ColumnID,
		},
		Link: "/kanban",
	})
	if err != nil {
		log.Printf("[FCM] Error sending restore notification to user %s: %v", userID, err)
		return
	}

	if len(stale) > 0 {
		log.Printf("[FCM] Cleaning up %d stale tokens", len(stale))
		if err := n.fcmRepo.PruneTokens(stale); err != nil {
			log.Printf("[FCM] Failed to prune tokens: %v", err)
		}
	}
}
