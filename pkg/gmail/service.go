package gmail

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = emaildomain.TokenUpdateFunc

// maxListPage is the Gmail API maximum for Messages.List
const maxListPage = 500

type Service struct {
	clientID     string
	clientSecret string
	endpoint     string // overrides the API base path, used against fakes
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// WithEndpoint points the service at a different API base URL
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, wrappedSource))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return srv, nil
}

// ListLabels retrieves all system and user labels
func (s *Service) ListLabels(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) ([]*emaildomain.Label, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve labels: %w", err)
	}

	labels := make([]*emaildomain.Label, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if label.Type != "system" && label.Type != "user" {
			continue
		}
		labels = append(labels, &emaildomain.Label{
			ID:   label.Id,
			Name: label.Name,
			Type: label.Type,
		})
	}

	return labels, nil
}

// CreateLabel creates a user label visible in the label list
func (s *Service) CreateLabel(ctx context.Context, accessToken, refreshToken, name string, onTokenRefresh TokenUpdateFunc) (*emaildomain.Label, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	created, err := srv.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create label %q: %w", name, err)
	}

	return &emaildomain.Label{ID: created.Id, Name: created.Name, Type: created.Type}, nil
}

// GetMessageLabels returns the label ids currently attached to a message
func (s *Service) GetMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) ([]string, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("minimal").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", messageID, err)
	}

	return msg.LabelIds, nil
}

// ListMessageIDs lists message ids carrying labelID and none of excludeLabelIDs, newest first
func (s *Service) ListMessageIDs(ctx context.Context, accessToken, refreshToken, labelID string, excludeLabelIDs []string, limit int, onTokenRefresh TokenUpdateFunc) ([]string, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	query := ""
	if len(excludeLabelIDs) > 0 {
		resp, err := srv.Users.Labels.List("me").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve labels: %w", err)
		}
		names := make(map[string]string, len(resp.Labels))
		for _, l := range resp.Labels {
			names[l.Id] = l.Name
		}
		query = excludeQuery(excludeLabelIDs, names)
	}

	ids := make([]string, 0)
	pageToken := ""
	for {
		call := srv.Users.Messages.List("me").Context(ctx)
		if labelID != "" {
			call = call.LabelIds(labelID)
		}
		if query != "" {
			call = call.Q(query)
		}
		pageSize := int64(maxListPage)
		if limit > 0 && limit-len(ids) < maxListPage {
			pageSize = int64(limit - len(ids))
		}
		call = call.MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || (limit > 0 && len(ids) >= limit) {
			break
		}
	}

	return ids, nil
}

// excludeQuery builds a search expression skipping the given labels.
// Search matches labels by name, lowercased with spaces and slashes as dashes.
func excludeQuery(labelIDs []string, names map[string]string) string {
	parts := make([]string, 0, len(labelIDs))
	for _, id := range labelIDs {
		name, ok := names[id]
		if !ok || name == "" {
			continue
		}
		parts = append(parts, "-label:"+searchLabelName(name))
	}
	return strings.Join(parts, " ")
}

func searchLabelName(name string) string {
	return strings.NewReplacer(" ", "-", "/", "-").Replace(strings.ToLower(name))
}

// ModifyMessageLabels adds and/or removes labels from a message
func (s *Service) ModifyMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if len(addLabelIDs) > 0 {
		modifyReq.AddLabelIds = addLabelIDs
	}
	if len(removeLabelIDs) > 0 {
		modifyReq.RemoveLabelIds = removeLabelIDs
	}

	_, err = srv.Users.Messages.Modify("me", messageID, modifyReq).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to modify message labels: %w", err)
	}

	return nil
}

// Watch sets up push notifications for the user's mailbox
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken string, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	// Only one push client is allowed per mailbox, clear any previous watch
	_ = srv.Users.Stop("me").Context(ctx).Do()

	resp, err := srv.Users.Watch("me", &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch started on %s, expiration: %d, historyId: %d", topicName, resp.Expiration, resp.HistoryId)

	return nil
}
