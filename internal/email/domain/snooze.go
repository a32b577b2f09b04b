package domain

import "time"

// SnoozeState is the lifecycle state of a snooze record
type SnoozeState string

const (
	SnoozeStateActive    SnoozeState = "active"    // waiting for wake-at
	SnoozeStateRestored  SnoozeState = "restored"  // woken up by the sweep
	SnoozeStateCancelled SnoozeState = "cancelled" // explicit unsnooze or superseded
)

// SnoozePreset names a computed wake-up time
type SnoozePreset string

const (
	PresetLaterToday  SnoozePreset = "later_today"
	PresetTomorrow    SnoozePreset = "tomorrow"
	PresetThisWeekend SnoozePreset = "this_weekend"
	PresetNextWeek    SnoozePreset = "next_week"
)

// SnoozeRecord stores when a snoozed email should come back and where to.
// At most one record per (user, email) is active at a time.
type SnoozeRecord struct {
	ID             string      `json:"id" gorm:"primaryKey"`
	UserID         string      `json:"user_id" gorm:"index:idx_snooze_active_email,unique,where:state = 'active';not null"`
	EmailID        string      `json:"email_id" gorm:"index:idx_snooze_active_email,unique,where:state = 'active';not null"`
	OriginColumnID string      `json:"origin_column_id" gorm:"not null"`
	WakeAt         time.Time   `json:"wake_at" gorm:"index:idx_snooze_state_wake;not null"`
	State          SnoozeState `json:"state" gorm:"index:idx_snooze_state_wake;not null;default:active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SnoozeRecord) TableName() string {
	return "snooze_records"
}

// RestoredEvent is published to the owner's channel when a snoozed email returns
type RestoredEvent struct {
	EmailID   string    `json:"email_id"`
	ColumnID  string    `json:"column_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SweepResult summarizes one sweep pass
type SweepResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
