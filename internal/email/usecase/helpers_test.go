package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
	"mailboard-backend/internal/email/repository"
	"mailboard-backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUser = "user-1"

type fixture struct {
	db           *gorm.DB
	mail         *testutil.FakeMailProvider
	columnRepo   repository.KanbanColumnRepository
	positionRepo repository.EmailPositionRepository
	snoozeRepo   repository.SnoozeRepository
	publisher    *recordingPublisher
	clock        *fakeClock

	columns   ColumnUsecase
	placement PlacementUsecase
	snooze    SnoozeUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{
		db:           db,
		mail:         testutil.NewFakeMailProvider(),
		columnRepo:   repository.NewKanbanColumnRepository(db),
		positionRepo: repository.NewEmailPositionRepository(db),
		snoozeRepo:   repository.NewSnoozeRepository(db),
		publisher:    &recordingPublisher{},
		clock:        &fakeClock{now: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)},
	}
	f.mail.AddLabel(testUser, emaildomain.DefaultColumnLabelID, "INBOX")
	f.columns = NewColumnUsecase(f.columnRepo, f.mail)
	f.placement = NewPlacementUsecase(f.columnRepo, f.positionRepo, f.snoozeRepo, f.mail, "gmail-updates")
	f.snooze = NewSnoozeUsecase(f.columnRepo, f.positionRepo, f.snoozeRepo, f.mail, f.publisher, SnoozeOptions{
		Location: time.UTC,
		Clock:    f.clock.Now,
	})
	return f
}

// board provisions the default column first, then one bound column per label id
func (f *fixture) board(t *testing.T, labelIDs ...string) (*emaildomain.KanbanColumn, []*emaildomain.KanbanColumn) {
	t.Helper()
	ctx := context.Background()
	cols, err := f.columns.ListColumns(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, cols, 1)

	var bound []*emaildomain.KanbanColumn
	for _, id := range labelIDs {
		col := &emaildomain.KanbanColumn{UserID: testUser, Name: "Column " + id, LabelID: id, LabelName: id}
		require.NoError(t, f.columnRepo.CreateColumn(ctx, col))
		bound = append(bound, col)
	}
	return cols[0], bound
}

func (f *fixture) unboundColumn(t *testing.T, name string) *emaildomain.KanbanColumn {
	t.Helper()
	col := &emaildomain.KanbanColumn{UserID: testUser, Name: name}
	require.NoError(t, f.columnRepo.CreateColumn(context.Background(), col))
	return col
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type publishedEvent struct {
	UserID string
	Event  emaildomain.RestoredEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishRestored(userID string, event emaildomain.RestoredEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event})
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
