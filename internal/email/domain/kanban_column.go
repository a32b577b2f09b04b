package domain

import "time"

// ColumnState is the lifecycle state of a Kanban column
type ColumnState string

const (
	ColumnStateActive   ColumnState = "active"
	ColumnStateInactive ColumnState = "inactive"
)

// DefaultColumnLabelID is the Gmail label bound to the fallback column
const DefaultColumnLabelID = "INBOX"

// KanbanColumn represents a user-defined Kanban board column configuration
type KanbanColumn struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	UserID    string      `json:"user_id" gorm:"index:idx_column_user_state;index:idx_column_user_order,unique,where:state = 'active';index:idx_column_user_default,unique,where:is_default = true AND state = 'active';not null"`
	Name      string      `json:"name" gorm:"not null"`
	LabelID   string      `json:"label_id,omitempty" gorm:"default:''"`   // Gmail label bound to this column, empty for manual-only columns
	LabelName string      `json:"label_name,omitempty" gorm:"default:''"` // Display name of the bound label
	Order     int         `json:"order" gorm:"column:display_order;index:idx_column_user_order,unique,where:state = 'active';not null;default:0"`
	State     ColumnState `json:"state" gorm:"index:idx_column_user_state;not null;default:active"`
	IsDefault bool        `json:"is_default" gorm:"not null;default:false"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (KanbanColumn) TableName() string {
	return "kanban_columns"
}

// IsActive reports whether the column is visible on the board
func (c *KanbanColumn) IsActive() bool {
	return c.State == ColumnStateActive
}

// IsBound reports whether the column is bound to a mail-provider label
func (c *KanbanColumn) IsBound() bool {
	return c.LabelID != ""
}

// LabelOption selects how a new column is bound to a mail-provider label
type LabelOption string

const (
	LabelOptionExisting LabelOption = "existing"
	LabelOptionNew      LabelOption = "new"
	LabelOptionNone     LabelOption = "none"
)

// ColumnOrder is one entry of a column reorder batch
type ColumnOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
