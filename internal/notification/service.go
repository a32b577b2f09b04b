package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	authrepo "mailboard-backend/internal/auth/repository"
	"mailboard-backend/pkg/realtime"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes for a watched mailbox
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service listens to Gmail watch notifications and tells the user's clients to refresh
type Service struct {
	pubsubClient *pubsub.Client
	hub          *realtime.Hub
	userRepo     authrepo.UserRepository
	topicName    string
	subName      string
}

func NewService(ctx context.Context, projectID, topicName string, hub *realtime.Hub, userRepo authrepo.UserRepository, credentialsFile string) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient: client,
		hub:          hub,
		userRepo:     userRepo,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

// Start blocks receiving messages until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		log.Printf("[PubSub] %v", err)
		return
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handlePayload(msg.Data)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	log.Printf("[PubSub] Created subscription: %s", s.subName)
	return sub, nil
}

// Close releases the Pub/Sub client
func (s *Service) Close() error {
	return s.pubsubClient.Close()
}

// handlePayload forwards one mailbox change. Redeliveries and out-of-order
// history ids are dropped by the persisted cursor.
func (s *Service) handlePayload(data []byte) bool {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return false
	}

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return false
	}
	if user == nil {
		log.Printf("[PubSub] User not found for email: %s", notification.EmailAddress)
		return false
	}

	advanced, err := s.userRepo.UpdateHistoryID(user.ID, notification.HistoryID)
	if err != nil {
		log.Printf("[PubSub] Failed to store history id for user %s: %v", user.ID, err)
		return false
	}
	if !advanced {
		log.Printf("[PubSub] Skipping duplicate notification for user %s (historyId %d)", user.ID, notification.HistoryID)
		return false
	}

	s.hub.Publish(user.ID, realtime.Message{
		Event: EventEmailUpdate,
		Data: map[string]interface{}{
			"history_id": notification.HistoryID,
			"timestamp":  time.Now(),
		},
	})
	return true
}
