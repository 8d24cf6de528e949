package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigma/internal/apperror"
	"sigma/internal/model"
	"sigma/internal/repository"
	"sigma/internal/util"

	"github.com/google/uuid"
)

// SuggestNext computes the suggested date and time of the lodge's next
// session from its configured schedule. The anchor is the start of the most
// recent Held session, or the current time when the lodge has none. When the
// lodge's schedule is not fully configured the suggestion is None, which is
// not an error.
//
// Cadence rules, all relative to the anchor date:
//   - weekly: the next occurrence of the configured weekday strictly after
//     the anchor date.
//   - biweekly: the occurrence of the configured weekday in the week after
//     next; an anchor already on the configured weekday advances 14 days.
//   - monthly: walking forward day by day, the first date in a later month
//     that falls on the configured weekday with a day of month no earlier
//     than the anchor's.
//
// If the computed datetime is not strictly in the future it is recomputed
// with the current time as anchor, so the suggestion always points forward.
func (m *Manager) SuggestNext(ctx context.Context, lodgeID uuid.UUID) (util.Optional[time.Time], error) {
	lodge, err := m.repo.GetLodgeByID(ctx, lodgeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return util.None[time.Time](), apperror.NotFound("lodge not found")
		}
		return util.None[time.Time](), fmt.Errorf("failed to load lodge: %w", err)
	}

	if !lodge.SessionScheduleConfigured() {
		return util.None[time.Time](), nil
	}

	day := lodge.SessionDay.Val
	tod := lodge.SessionTime.Val
	periodicity := lodge.Periodicity.Val

	now := m.now()
	anchor := now
	if last, err := m.repo.GetLastHeldSession(ctx, lodgeID); err == nil {
		anchor = last.StartsAt
	} else if !errors.Is(err, repository.ErrNotFound) {
		return util.None[time.Time](), fmt.Errorf("failed to load last held session: %w", err)
	}

	next := nextOccurrence(anchor, day, tod, periodicity)
	if !next.After(now) {
		next = nextOccurrence(now, day, tod, periodicity)
	}
	return util.Some(next), nil
}

func nextOccurrence(anchor time.Time, day time.Weekday, tod model.TimeOfDay, periodicity model.Periodicity) time.Time {
	switch periodicity {
	case model.PeriodicityWeekly:
		delta := int(day-anchor.Weekday()+7) % 7
		if delta == 0 {
			delta = 7
		}
		return tod.On(anchor.AddDate(0, 0, delta))
	case model.PeriodicityBiweekly:
		delta := int(day-anchor.Weekday()+7) % 7
		if delta == 0 {
			delta = 14
		} else {
			delta += 7
		}
		return tod.On(anchor.AddDate(0, 0, delta))
	default:
		return tod.On(nextMonthlyDate(anchor, day))
	}
}

// nextMonthlyDate walks forward from the anchor until it finds a date on the
// target weekday, in a later month, whose day of month is not earlier than
// the anchor's. Anchors late in the month (day 29 to 31) may skip months
// that have no qualifying date; a day-31 anchor can wait over a year for the
// weekday to land on a 31st again, so the horizon covers five years. If the
// horizon is somehow exhausted the fallback still honors the weekday.
func nextMonthlyDate(anchor time.Time, day time.Weekday) time.Time {
	candidate := anchor.AddDate(0, 0, 1)
	horizon := anchor.AddDate(5, 0, 0)
	for candidate.Before(horizon) {
		laterMonth := candidate.Year() > anchor.Year() ||
			(candidate.Year() == anchor.Year() && candidate.Month() > anchor.Month())
		if candidate.Weekday() == day && laterMonth && candidate.Day() >= anchor.Day() {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	delta := int(day-candidate.Weekday()+7) % 7
	return candidate.AddDate(0, 0, delta)
}
