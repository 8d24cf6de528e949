package session_test

import (
	"context"
	"testing"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/model"
	"sigma/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) configureSchedule(day time.Weekday, at string, periodicity model.Periodicity) {
	tod, err := model.ParseTimeOfDay(at)
	if err != nil {
		panic(err)
	}
	lodge := f.repo.Lodges[f.lodge.ID]
	lodge.SessionDay = util.Some(day)
	lodge.SessionTime = util.Some(tod)
	lodge.Periodicity = util.Some(periodicity)
	f.repo.Lodges[f.lodge.ID] = lodge
	f.lodge = lodge
}

func (f *fixture) heldSessionAt(startsAt time.Time) {
	s := model.Session{
		ID:       uuid.New(),
		LodgeID:  f.lodge.ID,
		StartsAt: startsAt,
		Type:     model.SessionTypeOrdinary,
		Status:   model.SessionHeld,
	}
	f.repo.Sessions[s.ID] = s
}

func TestSuggestNext_UnconfiguredScheduleIsNone(t *testing.T) {
	f := newFixture(t)

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	assert.False(t, suggested.IsSet)

	// A partially configured schedule is still None.
	lodge := f.repo.Lodges[f.lodge.ID]
	lodge.SessionDay = util.Some(time.Tuesday)
	f.repo.Lodges[f.lodge.ID] = lodge

	suggested, err = f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	assert.False(t, suggested.IsSet)
}

func TestSuggestNext_UnknownLodge(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.SuggestNext(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSuggestNext_Weekly(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Tuesday, "20:00", model.PeriodicityWeekly)

	// Anchor: held session on Tuesday 2025-06-03. Next Tuesday is June 10,
	// but "now" (June 10, 20:00) is not strictly before it, so the
	// suggestion re-anchors at now and lands on June 17.
	f.heldSessionAt(time.Date(2025, time.June, 3, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.June, 17, 20, 0, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_WeeklyFromRecentAnchor(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Friday, "19:30", model.PeriodicityWeekly)

	// Held on Friday June 6; next Friday June 13 at 19:30 is in the future.
	f.heldSessionAt(time.Date(2025, time.June, 6, 19, 30, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.June, 13, 19, 30, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_WeeklyNoHistoryAnchorsAtNow(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Thursday, "20:00", model.PeriodicityWeekly)

	// Now is Tuesday June 10; next Thursday is June 12.
	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.June, 12, 20, 0, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_Biweekly(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Tuesday, "20:00", model.PeriodicityBiweekly)

	// Anchor on Tuesday June 3 advances a full fortnight to June 17.
	f.heldSessionAt(time.Date(2025, time.June, 3, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.June, 17, 20, 0, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_BiweeklyOffDayAnchor(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Friday, "20:00", model.PeriodicityBiweekly)

	// Anchor on Monday June 2: the Friday of the week after next is June 13.
	f.heldSessionAt(time.Date(2025, time.June, 2, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.June, 13, 20, 0, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_Monthly(t *testing.T) {
	f := newFixture(t)
	f.configureSchedule(time.Tuesday, "20:00", model.PeriodicityMonthly)

	// Anchor: Tuesday June 3. July 1 is a Tuesday but its day of month falls
	// before the anchor's, so the suggestion lands on July 8.
	f.heldSessionAt(time.Date(2025, time.June, 3, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2025, time.July, 8, 20, 0, 0, 0, time.UTC), suggested.Val)
}

func TestSuggestNext_MonthlyLateAnchorSkipsShortMonth(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	f.configureSchedule(time.Friday, "20:00", model.PeriodicityMonthly)

	// Anchor: Friday January 31. February 2025 has no Friday with day >= 31,
	// so the walk lands on the first qualifying Friday of a later month.
	f.heldSessionAt(time.Date(2025, time.January, 31, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Friday, suggested.Val.Weekday())
	assert.GreaterOrEqual(t, suggested.Val.Day(), 31)
	assert.True(t, suggested.Val.After(f.now))
}

func TestSuggestNext_MonthlyDay31AnchorStaysOnWeekday(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	f.configureSchedule(time.Tuesday, "20:00", model.PeriodicityMonthly)

	// Anchor: Tuesday March 31, 2026. The next Tuesday falling on a 31st is
	// seventeen months out, so the walk must stay on the weekday the whole
	// way rather than give up early.
	f.heldSessionAt(time.Date(2026, time.March, 31, 20, 0, 0, 0, time.UTC))

	suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
	require.NoError(t, err)
	require.True(t, suggested.IsSet)
	assert.Equal(t, time.Date(2027, time.August, 31, 20, 0, 0, 0, time.UTC), suggested.Val)
}

// Whatever the cadence, the suggestion is strictly in the future even when
// the anchor is far in the past.
func TestSuggestNext_AlwaysInFuture(t *testing.T) {
	for _, periodicity := range []model.Periodicity{
		model.PeriodicityWeekly, model.PeriodicityBiweekly, model.PeriodicityMonthly,
	} {
		t.Run(string(periodicity), func(t *testing.T) {
			f := newFixture(t)
			f.configureSchedule(time.Wednesday, "20:00", periodicity)
			f.heldSessionAt(time.Date(2023, time.March, 1, 20, 0, 0, 0, time.UTC))

			suggested, err := f.manager.SuggestNext(context.Background(), f.lodge.ID)
			require.NoError(t, err)
			require.True(t, suggested.IsSet)
			assert.True(t, suggested.Val.After(f.now))
			assert.Equal(t, time.Wednesday, suggested.Val.Weekday())
		})
	}
}
