package repository

import (
	"context"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
)

// SnoozeRepository defines the interface for snooze record persistence
type SnoozeRepository interface {
	// CreateSuperseding cancels any active record for the same email and creates the new one atomically
	CreateSuperseding(ctx context.Context, record *emaildomain.SnoozeRecord) error

	// FindActiveByEmail gets the active record for an email, nil when there is none
	FindActiveByEmail(ctx context.Context, userID, emailID string) (*emaildomain.SnoozeRecord, error)


	// FindActiveByUser gets all active records of a user ordered by wake-at
	FindActiveByUser(ctx context.Context, userID string) ([]*emaildomain.SnoozeRecord, error)

	// FindDue gets active records whose wake-at is not after now, ordered by wake-at
	FindDue(ctx context.Context, now time.Time, limit int) ([]*emaildomain.SnoozeRecord, error)

	// Transition moves a record from one state to another only if it is still in the from state.
	// It reports whether this caller won the update.
	Transition(ctx context.Context, id string, from, to emaildomain.SnoozeState) (bool, error)
}
