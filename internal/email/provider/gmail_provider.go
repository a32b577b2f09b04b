package provider

import (
	"context"
	"fmt"
	"log"

	authRepo "mailboard-backend/internal/auth/repository"
	emaildomain "mailboard-backend/internal/email/domain"
	"mailboard-backend/pkg/gmail"

	"golang.org/x/oauth2"
)

// GmailClient is the subset of pkg/gmail used by the provider
type GmailClient interface {
	ListLabels(ctx context.Context, accessToken, refreshToken string, onTokenRefresh gmail.TokenUpdateFunc) ([]*emaildomain.Label, error)
	CreateLabel(ctx context.Context, accessToken, refreshToken, name string, onTokenRefresh gmail.TokenUpdateFunc) (*emaildomain.Label, error)
	GetMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh gmail.TokenUpdateFunc) ([]string, error)
	ListMessageIDs(ctx context.Context, accessToken, refreshToken, labelID string, excludeLabelIDs []string, limit int, onTokenRefresh gmail.TokenUpdateFunc) ([]string, error)
	ModifyMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh gmail.TokenUpdateFunc) error
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh gmail.TokenUpdateFunc) error
}

// gmailProvider resolves the user's stored OAuth tokens for every call
type gmailProvider struct {
	client   GmailClient
	userRepo authRepo.UserRepository
}

func NewGmailProvider(client GmailClient, userRepo authRepo.UserRepository) emaildomain.MailProvider {
	return &gmailProvider{client: client, userRepo: userRepo}
}

func (p *gmailProvider) getUserTokens(userID string) (string, string, error) {
	user, err := p.userRepo.FindByID(userID)
	if err != nil {
		return "", "", err
	}
	if user == nil || user.AccessToken == "" {
		return "", "", fmt.Errorf("%w: no gmail credentials for user %s", emaildomain.ErrProviderFailure, userID)
	}
	return user.AccessToken, user.RefreshToken, nil
}

func (p *gmailProvider) makeTokenUpdateCallback(userID string) emaildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		log.Printf("[GmailProvider] Refreshed token for user %s", userID)
		return p.userRepo.UpdateTokens(userID, token)
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", emaildomain.ErrProviderFailure, err)
}

func (p *gmailProvider) ListLabels(ctx context.Context, userID string) ([]*emaildomain.Label, error) {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return nil, err
	}
	labels, err := p.client.ListLabels(ctx, accessToken, refreshToken, p.makeTokenUpdateCallback(userID))
	return labels, wrap(err)
}

func (p *gmailProvider) CreateLabel(ctx context.Context, userID, name string) (*emaildomain.Label, error) {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return nil, err
	}
	label, err := p.client.CreateLabel(ctx, accessToken, refreshToken, name, p.makeTokenUpdateCallback(userID))
	return label, wrap(err)
}

func (p *gmailProvider) GetMessageLabels(ctx context.Context, userID, messageID string) ([]string, error) {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return nil, err
	}
	labels, err := p.client.GetMessageLabels(ctx, accessToken, refreshToken, messageID, p.makeTokenUpdateCallback(userID))
	return labels, wrap(err)
}

func (p *gmailProvider) ListMessageIDs(ctx context.Context, userID, labelID string, excludeLabelIDs []string, limit int) ([]string, error) {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return nil, err
	}
	ids, err := p.client.ListMessageIDs(ctx, accessToken, refreshToken, labelID, excludeLabelIDs, limit, p.makeTokenUpdateCallback(userID))
	return ids, wrap(err)
}

func (p *gmailProvider) ModifyMessageLabels(ctx context.Context, userID, messageID string, addLabelIDs, removeLabelIDs []string) error {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return err
	}
	return wrap(p.client.ModifyMessageLabels(ctx, accessToken, refreshToken, messageID, addLabelIDs, removeLabelIDs, p.makeTokenUpdateCallback(userID)))
}

func (p *gmailProvider) Watch(ctx context.Context, userID, topicName string) error {
	accessToken, refreshToken, err := p.getUserTokens(userID)
	if err != nil {
		return err
	}
	return wrap(p.client.Watch(ctx, accessToken, refreshToken, topicName, p.makeTokenUpdateCallback(userID)))
}
