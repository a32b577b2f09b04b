package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	emaildomain "mailboard-backend/internal/email/domain"
)

// FakeMailProvider keeps labels and message label sets in memory
type FakeMailProvider struct {
	mu       sync.Mutex
	labels   map[string][]*emaildomain.Label
	messages map[string]map[string]map[string]bool
	nextID   int

	// ModifyErr makes every ModifyMessageLabels call fail
	ModifyErr error
	// FailModifyFor makes ModifyMessageLabels fail for the listed message ids
	FailModifyFor map[string]error

	ModifyCalls  int
	WatchedTopic string
}

func NewFakeMailProvider() *FakeMailProvider {
	return &FakeMailProvider{
		labels:        make(map[string][]*emaildomain.Label),
		messages:      make(map[string]map[string]map[string]bool),
		FailModifyFor: make(map[string]error),
	}
}

// AddLabel registers a label for the user
func (f *FakeMailProvider) AddLabel(userID, id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[userID] = append(f.labels[userID], &emaildomain.Label{ID: id, Name: name, Type: "user"})
}

// AddMessage stores a message carrying labelIDs
func (f *FakeMailProvider) AddMessage(userID, messageID string, labelIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages[userID] == nil {
		f.messages[userID] = make(map[string]map[string]bool)
	}
	set := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		set[id] = true
	}
	f.messages[userID][messageID] = set
}

// Labels returns the sorted label ids of a message
func (f *FakeMailProvider) Labels(userID, messageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.messages[userID][messageID])
}

// LabelByName finds a label id, empty when absent
func (f *FakeMailProvider) LabelByName(userID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.labels[userID] {
		if l.Name == name {
			return l.ID
		}
	}
	return ""
}

func (f *FakeMailProvider) ListLabels(ctx context.Context, userID string) ([]*emaildomain.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*emaildomain.Label, len(f.labels[userID]))
	copy(out, f.labels[userID])
	return out, nil
}

func (f *FakeMailProvider) CreateLabel(ctx context.Context, userID, name string) (*emaildomain.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.labels[userID] {
		if l.Name == name {
			return nil, fmt.Errorf("%w: label %q exists", emaildomain.ErrProviderFailure, name)
		}
	}
	f.nextID++
	label := &emaildomain.Label{ID: fmt.Sprintf("Label_%d", f.nextID), Name: name, Type: "user"}
	f.labels[userID] = append(f.labels[userID], label)
	return label, nil
}

func (f *FakeMailProvider) GetMessageLabels(ctx context.Context, userID, messageID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.messages[userID][messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s not found", emaildomain.ErrProviderFailure, messageID)
	}
	return sortedKeys(set), nil
}

func (f *FakeMailProvider) ListMessageIDs(ctx context.Context, userID, labelID string, excludeLabelIDs []string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, set := range f.messages[userID] {
		if labelID != "" && !set[labelID] {
			continue
		}
		excluded := false
		for _, ex := range excludeLabelIDs {
			if set[ex] {
				excluded = true
				break
			}
		}
		if !excluded {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *FakeMailProvider) ModifyMessageLabels(ctx context.Context, userID, messageID string, addLabelIDs, removeLabelIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModifyCalls++
	if f.ModifyErr != nil {
		return f.ModifyErr
	}
	if err := f.FailModifyFor[messageID]; err != nil {
		return err
	}
	set, ok := f.messages[userID][messageID]
	if !ok {
		return fmt.Errorf("%w: message %s not found", emaildomain.ErrProviderFailure, messageID)
	}
	for _, id := range removeLabelIDs {
		delete(set, id)
	}
	for _, id := range addLabelIDs {
		set[id] = true
	}
	return nil
}

func (f *FakeMailProvider) Watch(ctx context.Context, userID, topicName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WatchedTopic = topicName
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
