package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxDefaultAttempts = 3

// kanbanColumnRepository implements KanbanColumnRepository interface
type kanbanColumnRepository struct {
	db *gorm.DB
}

// NewKanbanColumnRepository creates a new instance of kanbanColumnRepository
func NewKanbanColumnRepository(db *gorm.DB) KanbanColumnRepository {
	return &kanbanColumnRepository{
		db: db,
	}
}

func (r *kanbanColumnRepository) active(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&emaildomain.KanbanColumn{}).
		Where("user_id = ? AND state = ?", userID, emaildomain.ColumnStateActive)
}

// GetColumnsByUserID gets all active columns for a user, ordered by order field
func (r *kanbanColumnRepository) GetColumnsByUserID(ctx context.Context, userID string) ([]*emaildomain.KanbanColumn, error) {
	var columns []*emaildomain.KanbanColumn
	err := r.active(ctx, userID).
		Order("display_order ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// GetColumnByID gets an active column by ID
func (r *kanbanColumnRepository) GetColumnByID(ctx context.Context, userID, columnID string) (*emaildomain.KanbanColumn, error) {
	var column emaildomain.KanbanColumn
	err := r.active(ctx, userID).Where("id = ?", columnID).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

// GetDefaultColumn gets the fallback column of a user
func (r *kanbanColumnRepository) GetDefaultColumn(ctx context.Context, userID string) (*emaildomain.KanbanColumn, error) {
	var column emaildomain.KanbanColumn
	err := r.active(ctx, userID).Where("is_default = ?", true).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

// lockBoard takes row locks on the user's active columns so concurrent writers serialize on them
func lockBoard(tx *gorm.DB, userID string) error {
	var locked []emaildomain.KanbanColumn
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("user_id = ? AND state = ?", userID, emaildomain.ColumnStateActive).
		Find(&locked).Error
}

func nextOrder(tx *gorm.DB, userID string) (int, error) {
	var maxOrder sql.NullInt64
	err := tx.Model(&emaildomain.KanbanColumn{}).
		Where("user_id = ? AND state = ?", userID, emaildomain.ColumnStateActive).
		Select("MAX(display_order)").
		Row().Scan(&maxOrder)
	if err != nil {
		return 0, err
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

func prepareColumn(column *emaildomain.KanbanColumn) {
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	now := time.Now()
	column.CreatedAt = now
	column.UpdatedAt = now
	column.State = emaildomain.ColumnStateActive
}

// CreateColumn creates a new column at the end of the board
func (r *kanbanColumnRepository) CreateColumn(ctx context.Context, column *emaildomain.KanbanColumn) error {
	prepareColumn(column)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// MAX runs as its own statement after the lock so it sees rows committed while waiting
		if err := lockBoard(tx, column.UserID); err != nil {
			return err
		}
		order, err := nextOrder(tx, column.UserID)
		if err != nil {
			return err
		}
		column.Order = order
		return tx.Create(column).Error
	})
}

// EnsureDefaultColumn inserts column as the user's default unless one exists, and returns the stored default
func (r *kanbanColumnRepository) EnsureDefaultColumn(ctx context.Context, column *emaildomain.KanbanColumn) (*emaildomain.KanbanColumn, bool, error) {
	for attempt := 0; attempt < maxDefaultAttempts; attempt++ {
		existing, err := r.GetDefaultColumn(ctx, column.UserID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}

		prepareColumn(column)
		column.IsDefault = true
		var inserted int64
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockBoard(tx, column.UserID); err != nil {
				return err
			}
			order, err := nextOrder(tx, column.UserID)
			if err != nil {
				return err
			}
			column.Order = order
			// A concurrent first request may have inserted the default, or taken this order slot
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(column)
			inserted = result.RowsAffected
			return result.Error
		})
		if err != nil {
			return nil, false, err
		}
		if inserted == 1 {
			return column, true, nil
		}
		column.ID = ""
	}
	return nil, false, fmt.Errorf("default column for user %s not provisioned after %d attempts", column.UserID, maxDefaultAttempts)
}

// RenameColumn updates a column's display name
func (r *kanbanColumnRepository) RenameColumn(ctx context.Context, userID, columnID, name string) error {
	result := r.active(ctx, userID).
		Where("id = ?", columnID).
		Updates(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return emaildomain.ErrColumnNotFound
	}
	return nil
}

// DeactivateColumn marks a column inactive, the row is kept
func (r *kanbanColumnRepository) DeactivateColumn(ctx context.Context, userID, columnID string) error {
	result := r.active(ctx, userID).
		Where("id = ?", columnID).
		Updates(map[string]interface{}{
			"state":      emaildomain.ColumnStateInactive,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return emaildomain.ErrColumnNotFound
	}
	return nil
}

// UpdateColumnOrders applies the whole batch or nothing.
// Active columns left out of the batch keep their relative order and take the lowest free slots.
func (r *kanbanColumnRepository) UpdateColumnOrders(ctx context.Context, userID string, orders []emaildomain.ColumnOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var columns []*emaildomain.KanbanColumn
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND state = ?", userID, emaildomain.ColumnStateActive).
			Order("display_order ASC").
			Order("created_at ASC").
			Order("id ASC").
			Find(&columns).Error
		if err != nil {
			return err
		}

		final, err := planColumnOrders(columns, orders)
		if err != nil {
			return err
		}

		// Park every active row on a negative slot first so no statement collides with the unique order index
		err = tx.Model(&emaildomain.KanbanColumn{}).
			Where("user_id = ? AND state = ?", userID, emaildomain.ColumnStateActive).
			Update("display_order", gorm.Expr("-display_order - 1")).Error
		if err != nil {
			return err
		}

		now := time.Now()
		for _, col := range columns {
			result := tx.Model(&emaildomain.KanbanColumn{}).
				Where("user_id = ? AND id = ? AND state = ?", userID, col.ID, emaildomain.ColumnStateActive).
				Updates(map[string]interface{}{
					"display_order": final[col.ID],
					"updated_at":    now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", emaildomain.ErrColumnNotFound, col.ID)
			}
		}
		return nil
	})
}

// planColumnOrders maps every active column to its new order.
// columns must be in current board order.
func planColumnOrders(columns []*emaildomain.KanbanColumn, orders []emaildomain.ColumnOrder) (map[string]int, error) {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col.ID] = true
	}

	final := make(map[string]int, len(columns))
	taken := make(map[int]bool, len(orders))
	for _, o := range orders {
		if !known[o.ID] {
			return nil, fmt.Errorf("%w: %s", emaildomain.ErrColumnNotFound, o.ID)
		}
		if _, dup := final[o.ID]; dup || taken[o.Order] {
			return nil, emaildomain.NewValidationError("orders", "ids and orders must be unique")
		}
		final[o.ID] = o.Order
		taken[o.Order] = true
	}

	slot := 0
	for _, col := range columns {
		if _, ok := final[col.ID]; ok {
			continue
		}
		for taken[slot] {
			slot++
		}
		final[col.ID] = slot
		taken[slot] = true
	}
	return final, nil
}
