package dto

import (
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
)

type CreateColumnRequest struct {
	Name        string                  `json:"name" validate:"required,max=50"`
	LabelOption emaildomain.LabelOption `json:"label_option" validate:"required,oneof=existing new none"`
	LabelID     string                  `json:"label_id" validate:"required_if=LabelOption existing"`
	LabelName   string                  `json:"label_name" validate:"required_if=LabelOption new"`
}

type RenameColumnRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type ReorderColumnsRequest struct {
	Orders []emaildomain.ColumnOrder `json:"orders" validate:"required,min=1,dive"`
}

type MoveEmailRequest struct {
	ColumnID string `json:"column_id" validate:"required"`
}

type ReorderEmailsRequest struct {
	ColumnID string   `json:"column_id" validate:"required"`
	EmailIDs []string `json:"email_ids" validate:"required,min=1,dive,required"`
}

// SnoozeRequest carries either a named preset or an explicit wake time
type SnoozeRequest struct {
	Preset emaildomain.SnoozePreset `json:"preset,omitempty" validate:"omitempty,oneof=later_today tomorrow this_weekend next_week"`
	Until  *time.Time               `json:"until,omitempty" validate:"required_without=Preset,excluded_with=Preset"`
}

type ColumnsResponse struct {
	Columns []*emaildomain.KanbanColumn `json:"columns"`
}

type LabelsResponse struct {
	Labels []*emaildomain.Label `json:"labels"`
}

type ColumnEmailsResponse struct {
	Column   *emaildomain.KanbanColumn `json:"column"`
	EmailIDs []string                  `json:"email_ids"`
}

type EmailColumnResponse struct {
	EmailID  string `json:"email_id"`
	ColumnID string `json:"column_id"`
}

type SnoozeResponse struct {
	Record *emaildomain.SnoozeRecord `json:"snooze"`
}

type SnoozedResponse struct {
	Snoozed []*emaildomain.SnoozeRecord `json:"snoozed"`
}
