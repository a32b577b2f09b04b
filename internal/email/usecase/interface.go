package usecase

import (
	"context"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"
)

// ColumnUsecase manages the user's kanban columns
type ColumnUsecase interface {
	ListColumns(ctx context.Context, userID string) ([]*emaildomain.KanbanColumn, error)
	GetColumn(ctx context.Context, userID, columnID string) (*emaildomain.KanbanColumn, error)
	CreateColumn(ctx context.Context, userID string, req *emaildto.CreateColumnRequest) (*emaildomain.KanbanColumn, error)
	RenameColumn(ctx context.Context, userID, columnID string, req *emaildto.RenameColumnRequest) (*emaildomain.KanbanColumn, error)
	DeactivateColumn(ctx context.Context, userID, columnID string) error
	ReorderColumns(ctx context.Context, userID string, req *emaildto.ReorderColumnsRequest) ([]*emaildomain.KanbanColumn, error)
	ListLabels(ctx context.Context, userID string) ([]*emaildomain.Label, error)
}

// PlacementUsecase derives and changes which column an email belongs to
type PlacementUsecase interface {
	ResolveColumn(ctx context.Context, userID, emailID string) (*emaildomain.KanbanColumn, error)
	Move(ctx context.Context, userID, emailID, targetColumnID string) error
	ReorderWithinColumn(ctx context.Context, userID string, req *emaildto.ReorderEmailsRequest) error
	ListColumnEmails(ctx context.Context, userID, columnID string, limit int) (*emaildomain.KanbanColumn, []string, error)
	WatchMailbox(ctx context.Context, userID string) error
}

// SnoozeUsecase hides emails until a wake time and brings them back
type SnoozeUsecase interface {
	Snooze(ctx context.Context, userID, emailID string, req *emaildto.SnoozeRequest) (*emaildomain.SnoozeRecord, error)
	Unsnooze(ctx context.Context, userID, emailID string) (string, error)
	ListSnoozed(ctx context.Context, userID string) ([]*emaildomain.SnoozeRecord, error)
	RestoreDue(ctx context.Context, now time.Time) (*emaildomain.SweepResult, error)
}

// EventPublisher delivers restoration events to the owning user
type EventPublisher interface {
	PublishRestored(userID string, event emaildomain.RestoredEvent)
}

// Clock returns the current time, replaced in tests
type Clock func() time.Time
