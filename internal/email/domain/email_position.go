package domain

import "time"

// EmailPosition is the manual sort key of an email inside a column.
// For columns without a label binding the row also records membership.
type EmailPosition struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_user_email_column;not null"`
	EmailID   string    `json:"email_id" gorm:"uniqueIndex:idx_user_email_column;not null"`
	ColumnID  string    `json:"column_id" gorm:"uniqueIndex:idx_user_email_column;index;not null"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (EmailPosition) TableName() string {
	return "email_positions"
}
