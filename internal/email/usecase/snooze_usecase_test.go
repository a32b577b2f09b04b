package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"
	"mailboard-backend/internal/email/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, hour, min int) time.Time {
	return time.Date(2024, 1, d, hour, min, 0, 0, time.UTC)
}

func TestComputeWakeAt(t *testing.T) {
	// 2024-01-01 is a Monday
	tests := []struct {
		name   string
		preset emaildomain.SnoozePreset
		now    time.Time
		want   time.Time
	}{
		{"later today in the morning", emaildomain.PresetLaterToday, day(1, 10, 0), day(1, 18, 0)},
		{"later today after six rolls over", emaildomain.PresetLaterToday, day(1, 20, 0), day(2, 18, 0)},
		{"later today exactly at six rolls over", emaildomain.PresetLaterToday, day(1, 18, 0), day(2, 18, 0)},
		{"tomorrow in the evening", emaildomain.PresetTomorrow, day(1, 20, 0), day(2, 9, 0)},
		{"tomorrow across month end", emaildomain.PresetTomorrow, day(31, 23, 30), time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
		{"weekend from monday", emaildomain.PresetThisWeekend, day(1, 10, 0), day(6, 9, 0)},
		{"weekend on saturday morning", emaildomain.PresetThisWeekend, day(6, 8, 0), day(6, 9, 0)},
		{"weekend on saturday afternoon", emaildomain.PresetThisWeekend, day(6, 14, 0), day(13, 9, 0)},
		{"weekend from sunday", emaildomain.PresetThisWeekend, day(7, 10, 0), day(13, 9, 0)},
		{"next week from monday", emaildomain.PresetNextWeek, day(1, 8, 0), day(8, 9, 0)},
		{"next week from wednesday", emaildomain.PresetNextWeek, day(3, 12, 0), day(8, 9, 0)},
		{"next week from sunday", emaildomain.PresetNextWeek, day(7, 22, 0), day(8, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeWakeAt(tt.preset, tt.now, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestComputeWakeAt_UsesLocation(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	// 13:00 UTC is 20:00 in ICT
	got, err := ComputeWakeAt(emaildomain.PresetTomorrow, day(1, 13, 0), ict)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, ict), got)
	assert.Equal(t, day(2, 2, 0), got.UTC())
}

func TestComputeWakeAt_UnknownPreset(t *testing.T) {
	_, err := ComputeWakeAt("someday", day(1, 10, 0), nil)
	assert.Equal(t, []string{"preset"}, fieldNames(t, err))
}

func TestSnooze_TomorrowThenSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def, _ := f.board(t, "L1")
	f.mail.AddMessage(testUser, "m1", "INBOX", "UNREAD")
	f.clock.Set(day(1, 20, 0))

	rec, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Preset: emaildomain.PresetTomorrow})
	require.NoError(t, err)
	assert.True(t, day(2, 9, 0).Equal(rec.WakeAt))
	assert.Equal(t, def.ID, rec.OriginColumnID)

	marker := f.mail.LabelByName(testUser, "Snoozed")
	require.NotEmpty(t, marker)
	assert.ElementsMatch(t, []string{marker, "UNREAD"}, f.mail.Labels(testUser, "m1"))

	result, err := f.snooze.RestoreDue(ctx, day(2, 8, 59))
	require.NoError(t, err)
	assert.Equal(t, emaildomain.SweepResult{}, *result)
	assert.Empty(t, f.publisher.Events())

	f.clock.Set(day(2, 9, 1))
	result, err = f.snooze.RestoreDue(ctx, day(2, 9, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, testUser, events[0].UserID)
	assert.Equal(t, "m1", events[0].Event.EmailID)
	assert.Equal(t, def.ID, events[0].Event.ColumnID)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, f.mail.Labels(testUser, "m1"))

	active, err := f.snoozeRepo.FindActiveByEmail(ctx, testUser, "m1")
	require.NoError(t, err)
	assert.Nil(t, active)

	// Nothing is restored twice
	result, err = f.snooze.RestoreDue(ctx, day(2, 9, 2))
	require.NoError(t, err)
	assert.Zero(t, result.Restored)
	assert.Len(t, f.publisher.Events(), 1)
}

func TestSnooze_ValidationIsNotPersisted(t *testing.T) {
	now := day(1, 20, 0)
	past := now.Add(-time.Minute)
	tests := []struct {
		name  string
		req   emaildto.SnoozeRequest
		field string
	}{
		{"until equal to now", emaildto.SnoozeRequest{Until: &now}, "until"},
		{"until in the past", emaildto.SnoozeRequest{Until: &past}, "until"},
		{"neither preset nor until", emaildto.SnoozeRequest{}, "until"},
		{"both preset and until", emaildto.SnoozeRequest{Preset: emaildomain.PresetTomorrow, Until: &now}, "until"},
		{"unknown preset", emaildto.SnoozeRequest{Preset: "someday"}, "preset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.board(t)
			f.mail.AddMessage(testUser, "m1", "INBOX")
			f.clock.Set(now)
			req := tt.req

			_, err := f.snooze.Snooze(context.Background(), testUser, "m1", &req)

			assert.Contains(t, fieldNames(t, err), tt.field)
			assert.Zero(t, f.countRows(t, &emaildomain.SnoozeRecord{}))
			assert.Zero(t, f.mail.ModifyCalls)
			assert.Equal(t, []string{"INBOX"}, f.mail.Labels(testUser, "m1"))
		})
	}
}

func TestSnooze_ProviderFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	f.mail.ModifyErr = fmt.Errorf("%w: backend error", emaildomain.ErrProviderFailure)
	until := f.clock.Now().Add(time.Hour)

	_, err := f.snooze.Snooze(context.Background(), testUser, "m1", &emaildto.SnoozeRequest{Until: &until})

	assert.ErrorIs(t, err, emaildomain.ErrProviderFailure)
	assert.Zero(t, f.countRows(t, &emaildomain.SnoozeRecord{}))
}

func TestSnoozeThenUnsnooze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, cols := f.board(t, "L1")
	f.mail.AddMessage(testUser, "m1", "L1")
	until := f.clock.Now().Add(2 * time.Hour)

	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)
	assert.NotContains(t, f.mail.Labels(testUser, "m1"), "L1")

	snoozed, err := f.snooze.ListSnoozed(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, snoozed, 1)

	columnID, err := f.snooze.Unsnooze(ctx, testUser, "m1")
	require.NoError(t, err)
	assert.Equal(t, cols[0].ID, columnID)
	assert.Equal(t, []string{"L1"}, f.mail.Labels(testUser, "m1"))

	snoozed, err = f.snooze.ListSnoozed(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, snoozed)
	assert.Empty(t, f.publisher.Events())

	resolved, err := f.placement.ResolveColumn(ctx, testUser, "m1")
	require.NoError(t, err)
	assert.Equal(t, cols[0].ID, resolved.ID)

	// Only an active record can be unsnoozed
	_, err = f.snooze.Unsnooze(ctx, testUser, "m1")
	assert.ErrorIs(t, err, emaildomain.ErrNotSnoozed)
	assert.Equal(t, []string{"L1"}, f.mail.Labels(testUser, "m1"))

	_, err = f.snooze.Unsnooze(ctx, testUser, "never-snoozed")
	assert.ErrorIs(t, err, emaildomain.ErrNotSnoozed)
}

func TestUnsnooze_ProviderFailureKeepsRecordActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	until := f.clock.Now().Add(time.Hour)
	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)

	f.mail.ModifyErr = errors.New("unavailable")
	_, err = f.snooze.Unsnooze(ctx, testUser, "m1")
	require.Error(t, err)

	active, err := f.snoozeRepo.FindActiveByEmail(ctx, testUser, "m1")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestSnooze_ResnoozeSupersedesAndKeepsOrigin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, cols := f.board(t, "L1")
	f.mail.AddMessage(testUser, "m1", "L1")
	first := f.clock.Now().Add(time.Hour)
	second := f.clock.Now().Add(3 * time.Hour)

	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &first})
	require.NoError(t, err)
	rec, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &second})
	require.NoError(t, err)

	assert.Equal(t, cols[0].ID, rec.OriginColumnID)
	snoozed, err := f.snooze.ListSnoozed(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, snoozed, 1)
	assert.True(t, second.Equal(snoozed[0].WakeAt))

	result, err := f.snooze.RestoreDue(ctx, first.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, result.Restored, "superseded wake time must not fire")
}

func TestRestoreDue_DeactivatedOriginFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def, cols := f.board(t, "L1")
	f.mail.AddMessage(testUser, "m1", "L1")
	until := f.clock.Now().Add(time.Hour)
	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)

	require.NoError(t, f.columns.DeactivateColumn(ctx, testUser, cols[0].ID))

	result, err := f.snooze.RestoreDue(ctx, until)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, def.ID, events[0].Event.ColumnID)
	assert.Equal(t, []string{"INBOX"}, f.mail.Labels(testUser, "m1"))
}

func TestRestoreDue_FailureContinuesWithRemainingRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.board(t)
	until := f.clock.Now().Add(time.Hour)
	for _, id := range []string{"m1", "m2", "m3"} {
		f.mail.AddMessage(testUser, id, "INBOX")
		_, err := f.snooze.Snooze(ctx, testUser, id, &emaildto.SnoozeRequest{Until: &until})
		require.NoError(t, err)
	}
	f.mail.FailModifyFor["m2"] = fmt.Errorf("%w: rate limited", emaildomain.ErrProviderFailure)

	result, err := f.snooze.RestoreDue(ctx, until.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, emaildomain.SweepResult{Restored: 2, Failed: 1}, *result)

	active, err := f.snoozeRepo.FindActiveByEmail(ctx, testUser, "m2")
	require.NoError(t, err)
	require.NotNil(t, active, "failed record stays due for the next sweep")
	assert.Len(t, f.publisher.Events(), 2)

	delete(f.mail.FailModifyFor, "m2")
	result, err = f.snooze.RestoreDue(ctx, until.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)
	assert.Len(t, f.publisher.Events(), 3)
}

func TestRestoreDue_ConcurrentSweepsPublishOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	until := f.clock.Now().Add(time.Hour)
	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*emaildomain.SweepResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.snooze.RestoreDue(ctx, until)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	restored := 0
	for _, res := range results {
		require.NotNil(t, res)
		restored += res.Restored
	}
	assert.Equal(t, 1, restored)
	assert.Len(t, f.publisher.Events(), 1)
}

func TestUnsnooze_AfterSweepReportsNotSnoozed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	until := f.clock.Now().Add(time.Hour)
	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)

	result, err := f.snooze.RestoreDue(ctx, until)
	require.NoError(t, err)
	require.Equal(t, 1, result.Restored)

	_, err = f.snooze.Unsnooze(ctx, testUser, "m1")
	assert.ErrorIs(t, err, emaildomain.ErrNotSnoozed)
}

// claimStealingRepo lets another writer claim the record right before the caller's claim
type claimStealingRepo struct {
	repository.SnoozeRepository
	once sync.Once
}

func (r *claimStealingRepo) Transition(ctx context.Context, id string, from, to emaildomain.SnoozeState) (bool, error) {
	r.once.Do(func() {
		_, _ = r.SnoozeRepository.Transition(ctx, id, emaildomain.SnoozeStateActive, emaildomain.SnoozeStateRestored)
	})
	return r.SnoozeRepository.Transition(ctx, id, from, to)
}

func TestUnsnooze_LostClaimReportsRestoreTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, cols := f.board(t, "L1")
	f.mail.AddMessage(testUser, "m1", "L1")
	until := f.clock.Now().Add(time.Hour)
	_, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
	require.NoError(t, err)
	calls := f.mail.ModifyCalls

	snooze := NewSnoozeUsecase(f.columnRepo, f.positionRepo, &claimStealingRepo{SnoozeRepository: f.snoozeRepo}, f.mail, f.publisher, SnoozeOptions{Clock: f.clock.Now})
	columnID, err := snooze.Unsnooze(ctx, testUser, "m1")

	require.NoError(t, err)
	assert.Equal(t, cols[0].ID, columnID)
	assert.Equal(t, calls, f.mail.ModifyCalls, "the claim winner restores the labels")
}

func TestUnsnoozeRacingSweep_OneWinner(t *testing.T) {
	for i := 0; i < 10; i++ {
		f := newFixture(t)
		ctx := context.Background()
		def, _ := f.board(t)
		f.mail.AddMessage(testUser, "m1", "INBOX")
		until := f.clock.Now().Add(time.Hour)
		rec, err := f.snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var sweep *emaildomain.SweepResult
		var columnID string
		var unsnoozeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			res, err := f.snooze.RestoreDue(ctx, until)
			assert.NoError(t, err)
			sweep = res
		}()
		go func() {
			defer wg.Done()
			columnID, unsnoozeErr = f.snooze.Unsnooze(ctx, testUser, "m1")
		}()
		wg.Wait()

		var stored emaildomain.SnoozeRecord
		require.NoError(t, f.db.First(&stored, "id = ?", rec.ID).Error)
		require.NotNil(t, sweep)

		switch stored.State {
		case emaildomain.SnoozeStateRestored:
			assert.Equal(t, 1, sweep.Restored)
			assert.Len(t, f.publisher.Events(), 1)
			if unsnoozeErr != nil {
				assert.ErrorIs(t, unsnoozeErr, emaildomain.ErrNotSnoozed)
			} else {
				assert.Equal(t, def.ID, columnID)
			}
		case emaildomain.SnoozeStateCancelled:
			require.NoError(t, unsnoozeErr)
			assert.Equal(t, def.ID, columnID)
			assert.Zero(t, sweep.Restored)
			assert.Empty(t, f.publisher.Events(), "no event when unsnooze wins")
		default:
			t.Fatalf("record left in state %q", stored.State)
		}
		assert.Equal(t, []string{"INBOX"}, f.mail.Labels(testUser, "m1"))
	}
}

// competingSnoozeRepo fails the write after another request has stored its own active snooze
type competingSnoozeRepo struct {
	repository.SnoozeRepository
	winner *emaildomain.SnoozeRecord
}

var errActiveSnoozeExists = errors.New("duplicate key value violates unique constraint \"idx_snooze_active_email\"")

func (r *competingSnoozeRepo) CreateSuperseding(ctx context.Context, record *emaildomain.SnoozeRecord) error {
	if r.winner != nil {
		if err := r.SnoozeRepository.CreateSuperseding(ctx, r.winner); err != nil {
			return err
		}
	}
	return errActiveSnoozeExists
}

func TestSnooze_FailedWriteLeavesWinningSnoozeLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def, _ := f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	until := f.clock.Now().Add(time.Hour)
	winner := &emaildomain.SnoozeRecord{UserID: testUser, EmailID: "m1", OriginColumnID: def.ID, WakeAt: until}

	snooze := NewSnoozeUsecase(f.columnRepo, f.positionRepo, &competingSnoozeRepo{SnoozeRepository: f.snoozeRepo, winner: winner}, f.mail, f.publisher, SnoozeOptions{Clock: f.clock.Now})
	_, err := snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})

	require.ErrorIs(t, err, errActiveSnoozeExists)
	marker := f.mail.LabelByName(testUser, "Snoozed")
	assert.Equal(t, []string{marker}, f.mail.Labels(testUser, "m1"))

	active, err := f.snoozeRepo.FindActiveByEmail(ctx, testUser, "m1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, winner.ID, active.ID)
}

func TestSnooze_FailedWriteRevertsLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.board(t)
	f.mail.AddMessage(testUser, "m1", "INBOX")
	until := f.clock.Now().Add(time.Hour)

	snooze := NewSnoozeUsecase(f.columnRepo, f.positionRepo, &competingSnoozeRepo{SnoozeRepository: f.snoozeRepo}, f.mail, f.publisher, SnoozeOptions{Clock: f.clock.Now})
	_, err := snooze.Snooze(ctx, testUser, "m1", &emaildto.SnoozeRequest{Until: &until})

	require.ErrorIs(t, err, errActiveSnoozeExists)
	assert.Equal(t, []string{"INBOX"}, f.mail.Labels(testUser, "m1"))
	assert.Zero(t, f.countRows(t, &emaildomain.SnoozeRecord{}))
}
