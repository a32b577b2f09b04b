package domain

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is called when the OAuth token is refreshed during a provider call
type TokenUpdateFunc func(token *oauth2.Token) error

// Label is a mail-provider-side tag attached to messages
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "system" or "user"
}

// MailProvider exposes the label operations placement and snooze depend on.
// Every call is scoped to one user's mailbox.
type MailProvider interface {
	ListLabels(ctx context.Context, userID string) ([]*Label, error)
	CreateLabel(ctx context.Context, userID, name string) (*Label, error)
	GetMessageLabels(ctx context.Context, userID, messageID string) ([]string, error)
	ListMessageIDs(ctx context.Context, userID, labelID string, excludeLabelIDs []string, limit int) ([]string, error)
	ModifyMessageLabels(ctx context.Context, userID, messageID string, addLabelIDs, removeLabelIDs []string) error
	Watch(ctx context.Context, userID, topicName string) error
}
