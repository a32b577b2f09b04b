package repository

import (
	"context"

	emaildomain "mailboard-backend/internal/email/domain"
)

// EmailPositionRepository stores the manual sort key of emails inside columns
type EmailPositionRepository interface {
	// GetPositionsByColumn gets all positions of a column, lowest position first
	GetPositionsByColumn(ctx context.Context, userID, columnID string) ([]*emaildomain.EmailPosition, error)

	// GetPositionsByEmail gets every column position recorded for an email
	GetPositionsByEmail(ctx context.Context, userID, emailID string) ([]*emaildomain.EmailPosition, error)

	// SetColumnOrder rewrites positions 0..n-1 for the given emails in one transaction.
	// The column's other rows move after them, keeping their relative order.
	SetColumnOrder(ctx context.Context, userID, columnID string, emailIDs []string) error

	// PlaceEmail drops the email's rows for other columns and appends it to the target column.
	// An empty target only drops the rows.
	PlaceEmail(ctx context.Context, userID, emailID, targetColumnID string) error
}
