package repository

import (
	"context"

	emaildomain "mailboard-backend/internal/email/domain"
)

// KanbanColumnRepository defines the interface for kanban column operations.
// Inactive columns are filtered out of every query.
type KanbanColumnRepository interface {
	// Get all active columns for a user, ordered by order field
	GetColumnsByUserID(ctx context.Context, userID string) ([]*emaildomain.KanbanColumn, error)
	// Get an active column by ID, nil when it does not exist
	GetColumnByID(ctx context.Context, userID, columnID string) (*emaildomain.KanbanColumn, error)
	// Get the user's default (fallback) column, nil when not provisioned yet
	GetDefaultColumn(ctx context.Context, userID string) (*emaildomain.KanbanColumn, error)
	// Create a new column appended after the current last column
	CreateColumn(ctx context.Context, column *emaildomain.KanbanColumn) error
	// Insert the default column unless the user already has one. Returns the stored default and whether it was created.
	EnsureDefaultColumn(ctx context.Context, column *emaildomain.KanbanColumn) (*emaildomain.KanbanColumn, bool, error)
	// Rename a column
	RenameColumn(ctx context.Context, userID, columnID, name string) error
	// Soft-delete a column
	DeactivateColumn(ctx context.Context, userID, columnID string) error
	// Update column order for multiple columns in one transaction, renumbering the columns left out
	UpdateColumnOrders(ctx context.Context, userID string, orders []emaildomain.ColumnOrder) error
}
