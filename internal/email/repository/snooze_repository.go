package repository

import (
	"context"
	"errors"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type snoozeRepository struct {
	db *gorm.DB
}

// NewSnoozeRepository creates a new instance of snoozeRepository
func NewSnoozeRepository(db *gorm.DB) SnoozeRepository {
	return &snoozeRepository{db: db}
}

// CreateSuperseding cancels any active record for the same email and creates the new one atomically
func (r *snoozeRepository) CreateSuperseding(ctx context.Context, record *emaildomain.SnoozeRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	record.State = emaildomain.SnoozeStateActive
	record.WakeAt = record.WakeAt.UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&emaildomain.SnoozeRecord{}).
			Where("user_id = ? AND email_id = ? AND state = ?", record.UserID, record.EmailID, emaildomain.SnoozeStateActive).
			Updates(map[string]interface{}{
				"state":      emaildomain.SnoozeStateCancelled,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

// FindActiveByEmail gets the active record for an email
func (r *snoozeRepository) FindActiveByEmail(ctx context.Context, userID, emailID string) (*emaildomain.SnoozeRecord, error) {
	var record emaildomain.SnoozeRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND email_id = ? AND state = ?", userID, emailID, emaildomain.SnoozeStateActive).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindActiveByUser gets all active records of a user ordered by wake-at
func (r *snoozeRepository) FindActiveByUser(ctx context.Context, userID string) ([]*emaildomain.SnoozeRecord, error) {
	var records []*emaildomain.SnoozeRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, emaildomain.SnoozeStateActive).
		Order("wake_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindDue gets active records whose wake-at has elapsed
func (r *snoozeRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*emaildomain.SnoozeRecord, error) {
	var records []*emaildomain.SnoozeRecord
	query := r.db.WithContext(ctx).
		Where("state = ? AND wake_at <= ?", emaildomain.SnoozeStateActive, now.UTC()).
		Order("wake_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Transition is a compare-and-set on the record state
func (r *snoozeRepository) Transition(ctx context.Context, id string, from, to emaildomain.SnoozeState) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&emaildomain.SnoozeRecord{}).
		Where("id = ? AND state = ?", id, from).
		Updates(map[string]interface{}{
			"state":      to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
