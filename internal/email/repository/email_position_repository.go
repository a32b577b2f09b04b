package repository

import (
	"context"
	"database/sql"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type emailPositionRepository struct {
	db *gorm.DB
}

func NewEmailPositionRepository(db *gorm.DB) EmailPositionRepository {
	return &emailPositionRepository{db: db}
}

// GetPositionsByColumn gets all positions of a column, lowest position first
func (r *emailPositionRepository) GetPositionsByColumn(ctx context.Context, userID, columnID string) ([]*emaildomain.EmailPosition, error) {
	var positions []*emaildomain.EmailPosition
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND column_id = ?", userID, columnID).
		Order("position ASC").
		Order("updated_at ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// GetPositionsByEmail gets every column position recorded for an email
func (r *emailPositionRepository) GetPositionsByEmail(ctx context.Context, userID, emailID string) ([]*emaildomain.EmailPosition, error) {
	var positions []*emaildomain.EmailPosition
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND email_id = ?", userID, emailID).
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// SetColumnOrder rewrites positions 0..n-1 for the given emails in one transaction.
// Rows of the column not in emailIDs follow from n on, keeping their relative order.
func (r *emailPositionRepository) SetColumnOrder(ctx context.Context, userID, columnID string, emailIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rest []*emaildomain.EmailPosition
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND column_id = ? AND email_id NOT IN ?", userID, columnID, emailIDs).
			Order("position ASC").
			Order("updated_at ASC").
			Find(&rest).Error
		if err != nil {
			return err
		}

		now := time.Now()
		for i, p := range rest {
			err := tx.Model(&emaildomain.EmailPosition{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"position":   len(emailIDs) + i,
					"updated_at": now,
				}).Error
			if err != nil {
				return err
			}
		}

		for i, emailID := range emailIDs {
			position := &emaildomain.EmailPosition{
				ID:        uuid.New().String(),
				UserID:    userID,
				EmailID:   emailID,
				ColumnID:  columnID,
				Position:  i,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "email_id"}, {Name: "column_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
			}).Create(position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PlaceEmail drops the email's rows for other columns and appends it to the target column
func (r *emailPositionRepository) PlaceEmail(ctx context.Context, userID, emailID, targetColumnID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND email_id = ? AND column_id <> ?", userID, emailID, targetColumnID).
			Delete(&emaildomain.EmailPosition{}).Error
		if err != nil {
			return err
		}
		if targetColumnID == "" {
			return nil
		}

		var existing int64
		err = tx.Model(&emaildomain.EmailPosition{}).
			Where("user_id = ? AND email_id = ? AND column_id = ?", userID, emailID, targetColumnID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		var maxPosition sql.NullInt64
		err = tx.Model(&emaildomain.EmailPosition{}).
			Where("user_id = ? AND column_id = ?", userID, targetColumnID).
			Select("MAX(position)").
			Row().Scan(&maxPosition)
		if err != nil {
			return err
		}
		next := 0
		if maxPosition.Valid {
			next = int(maxPosition.Int64) + 1
		}

		return tx.Create(&emaildomain.EmailPosition{
			ID:        uuid.New().String(),
			UserID:    userID,
			EmailID:   emailID,
			ColumnID:  targetColumnID,
			Position:  next,
			UpdatedAt: time.Now(),
		}).Error
	})
}
