package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"
	"mailboard-backend/internal/email/repository"
)

const (
	defaultSnoozedLabelName = "Snoozed"
	restoreTimeout          = 30 * time.Second
)

// ComputeWakeAt maps a preset to its wall-clock target in loc
func ComputeWakeAt(preset emaildomain.SnoozePreset, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	at := func(dayOffset, hour int) time.Time {
		return time.Date(n.Year(), n.Month(), n.Day()+dayOffset, hour, 0, 0, 0, loc)
	}

	switch preset {
	case emaildomain.PresetLaterToday:
		t := at(0, 18)
		if !n.Before(t) {
			t = at(1, 18)
		}
		return t, nil
	case emaildomain.PresetTomorrow:
		return at(1, 9), nil
	case emaildomain.PresetThisWeekend:
		days := (int(time.Saturday) - int(n.Weekday()) + 7) % 7
		t := at(days, 9)
		if !t.After(n) {
			t = at(days+7, 9)
		}
		return t, nil
	case emaildomain.PresetNextWeek:
		days := (int(time.Monday) - int(n.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return at(days, 9), nil
	default:
		return time.Time{}, emaildomain.NewValidationError("preset", "must be one of: later_today tomorrow this_weekend next_week")
	}
}

// SnoozeOptions configures the snooze usecase
type SnoozeOptions struct {
	SnoozedLabelName string
	Location         *time.Location
	Clock            Clock
}

type snoozeUsecase struct {
	resolver     *columnResolver
	columnRepo   repository.KanbanColumnRepository
	snoozeRepo   repository.SnoozeRepository
	mailProvider emaildomain.MailProvider
	publisher    EventPublisher
	labelName    string
	location     *time.Location
	now          Clock
}

func NewSnoozeUsecase(
	columnRepo repository.KanbanColumnRepository,
	positionRepo repository.EmailPositionRepository,
	snoozeRepo repository.SnoozeRepository,
	mailProvider emaildomain.MailProvider,
	publisher EventPublisher,
	opts SnoozeOptions,
) SnoozeUsecase {
	if opts.SnoozedLabelName == "" {
		opts.SnoozedLabelName = defaultSnoozedLabelName
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &snoozeUsecase{
		resolver:     &columnResolver{columnRepo: columnRepo, positionRepo: positionRepo},
		columnRepo:   columnRepo,
		snoozeRepo:   snoozeRepo,
		mailProvider: mailProvider,
		publisher:    publisher,
		labelName:    opts.SnoozedLabelName,
		location:     opts.Location,
		now:          opts.Clock,
	}
}

// snoozedLabelID finds the user's marker label by name, creating it on first use
func (u *snoozeUsecase) snoozedLabelID(ctx context.Context, userID string) (string, error) {
	labels, err := u.mailProvider.ListLabels(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}
	if label := findLabel(labels, func(l *emaildomain.Label) bool { return strings.EqualFold(l.Name, u.labelName) }); label != nil {
		return label.ID, nil
	}

	label, err := u.mailProvider.CreateLabel(ctx, userID, u.labelName)
	if err != nil {
		return "", fmt.Errorf("failed to create %s label: %w", u.labelName, err)
	}
	return label.ID, nil
}

func (u *snoozeUsecase) wakeAt(req *emaildto.SnoozeRequest, now time.Time) (time.Time, error) {
	if req.Preset != "" {
		return ComputeWakeAt(req.Preset, now, u.location)
	}
	if !req.Until.After(now) {
		return time.Time{}, emaildomain.NewValidationError("until", "must be in the future")
	}
	return *req.Until, nil
}

func (u *snoozeUsecase) Snooze(ctx context.Context, userID, emailID string, req *emaildto.SnoozeRequest) (*emaildomain.SnoozeRecord, error) {
	if err := emaildto.Validate(req); err != nil {
		return nil, err
	}
	wakeAt, err := u.wakeAt(req, u.now())
	if err != nil {
		return nil, err
	}

	existing, err := u.snoozeRepo.FindActiveByEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}

	labels, err := u.mailProvider.GetMessageLabels(ctx, userID, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message labels: %w", err)
	}

	var origin *emaildomain.KanbanColumn
	if existing != nil {
		// Re-snoozing keeps the first origin, the email has been hidden since
		origin, err = u.columnRepo.GetColumnByID(ctx, userID, existing.OriginColumnID)
		if err != nil {
			return nil, err
		}
	}
	if origin == nil {
		origin, _, err = u.resolver.resolve(ctx, userID, emailID, labels)
		if err != nil {
			return nil, err
		}
	}

	markerID, err := u.snoozedLabelID(ctx, userID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(labels))
	for _, id := range labels {
		present[id] = true
	}
	remove := []string{}
	for _, id := range []string{emaildomain.DefaultColumnLabelID, origin.LabelID} {
		if id != "" && id != markerID && present[id] && !contains(remove, id) {
			remove = append(remove, id)
		}
	}
	add := []string{markerID}

	if err := u.mailProvider.ModifyMessageLabels(ctx, userID, emailID, add, remove); err != nil {
		return nil, fmt.Errorf("failed to apply snooze labels: %w", err)
	}

	record := &emaildomain.SnoozeRecord{
		UserID:         userID,
		EmailID:        emailID,
		OriginColumnID: origin.ID,
		WakeAt:         wakeAt,
	}
	if err := u.snoozeRepo.CreateSuperseding(ctx, record); err != nil {
		// Another snooze still active owns the labels now, leave them as they are
		if active, findErr := u.snoozeRepo.FindActiveByEmail(ctx, userID, emailID); findErr == nil && active != nil {
			log.Printf("[SnoozeEmail] Email %s kept snoozed by record %s, labels left in place", emailID, active.ID)
			return nil, fmt.Errorf("failed to save snooze record: %w", err)
		}
		revertAdd := remove
		revertRemove := []string{}
		if !present[markerID] {
			revertRemove = add
		}
		if revertErr := u.mailProvider.ModifyMessageLabels(ctx, userID, emailID, revertAdd, revertRemove); revertErr != nil {
			log.Printf("[SnoozeEmail] Failed to revert labels for email %s: %v", emailID, revertErr)
		}
		return nil, fmt.Errorf("failed to save snooze record: %w", err)
	}

	log.Printf("[SnoozeEmail] Email %s snoozed until %s, origin column %s", emailID, record.WakeAt.Format(time.RFC3339), origin.ID)
	return record, nil
}

func (u *snoozeUsecase) Unsnooze(ctx context.Context, userID, emailID string) (string, error) {
	record, err := u.snoozeRepo.FindActiveByEmail(ctx, userID, emailID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", emaildomain.ErrNotSnoozed
	}

	won, err := u.snoozeRepo.Transition(ctx, record.ID, emaildomain.SnoozeStateActive, emaildomain.SnoozeStateCancelled)
	if err != nil {
		return "", err
	}
	if !won {
		// The sweep or a concurrent unsnooze claimed it between the lookup and the claim
		return u.restoreTargetID(ctx, record)
	}

	target, err := u.restore(ctx, record)
	if err != nil {
		if _, releaseErr := u.snoozeRepo.Transition(ctx, record.ID, emaildomain.SnoozeStateCancelled, emaildomain.SnoozeStateActive); releaseErr != nil {
			log.Printf("[UnsnoozeEmail] Failed to release record %s: %v", record.ID, releaseErr)
		}
		return "", err
	}

	log.Printf("[UnsnoozeEmail] Email %s restored to column %s", emailID, target.ID)
	return target.ID, nil
}

func (u *snoozeUsecase) ListSnoozed(ctx context.Context, userID string) ([]*emaildomain.SnoozeRecord, error) {
	return u.snoozeRepo.FindActiveByUser(ctx, userID)
}

func (u *snoozeUsecase) RestoreDue(ctx context.Context, now time.Time) (*emaildomain.SweepResult, error) {
	due, err := u.snoozeRepo.FindDue(ctx, now, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find due snoozes: %w", err)
	}

	result := &emaildomain.SweepResult{}
	for _, record := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		won, err := u.snoozeRepo.Transition(ctx, record.ID, emaildomain.SnoozeStateActive, emaildomain.SnoozeStateRestored)
		if err != nil {
			log.Printf("[SnoozeSweep] Failed to claim record %s: %v", record.ID, err)
			result.Failed++
			continue
		}
		if !won {
			result.Skipped++
			continue
		}

		restoreCtx, cancel := context.WithTimeout(ctx, restoreTimeout)
		target, err := u.restore(restoreCtx, record)
		cancel()
		if err != nil {
			log.Printf("[SnoozeSweep] Failed to restore email %s for user %s: %v", record.EmailID, record.UserID, err)
			if _, releaseErr := u.snoozeRepo.Transition(ctx, record.ID, emaildomain.SnoozeStateRestored, emaildomain.SnoozeStateActive); releaseErr != nil {
				log.Printf("[SnoozeSweep] Failed to release record %s: %v", record.ID, releaseErr)
			}
			result.Failed++
			continue
		}

		if u.publisher != nil {
			u.publisher.PublishRestored(record.UserID, emaildomain.RestoredEvent{
				EmailID:   record.EmailID,
				ColumnID:  target.ID,
				Timestamp: u.now(),
			})
		}
		result.Restored++
	}

	return result, nil
}

// restoreTarget returns the origin column, or the default column when the origin is gone
func (u *snoozeUsecase) restoreTarget(ctx context.Context, record *emaildomain.SnoozeRecord) (*emaildomain.KanbanColumn, error) {
	column, err := u.columnRepo.GetColumnByID(ctx, record.UserID, record.OriginColumnID)
	if err != nil {
		return nil, err
	}
	if column != nil {
		return column, nil
	}
	return ensureDefaultColumn(ctx, u.columnRepo, record.UserID)
}

func (u *snoozeUsecase) restoreTargetID(ctx context.Context, record *emaildomain.SnoozeRecord) (string, error) {
	column, err := u.restoreTarget(ctx, record)
	if err != nil {
		return "", err
	}
	return column.ID, nil
}

// restore removes the marker label and puts back the target column's label
func (u *snoozeUsecase) restore(ctx context.Context, record *emaildomain.SnoozeRecord) (*emaildomain.KanbanColumn, error) {
	target, err := u.restoreTarget(ctx, record)
	if err != nil {
		return nil, err
	}

	markerID, err := u.snoozedLabelID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	var add []string
	if target.IsBound() {
		add = append(add, target.LabelID)
	}
	if err := u.mailProvider.ModifyMessageLabels(ctx, record.UserID, record.EmailID, add, []string{markerID}); err != nil {
		return nil, fmt.Errorf("failed to restore labels: %w", err)
	}
	return target, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
