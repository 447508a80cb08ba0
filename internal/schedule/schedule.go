// Package schedule computes the recurring weekly auction window.  It is a
// pure calculator: callers supply the clock reading, the function never
// reads time.Now itself, so results are fully deterministic and testable.
package schedule

import (
    "errors"
    "time"
)

// WeeklyRule describes the fixed real-world auction schedule: a weekday
// and local start time in a civil timezone, and how long the window stays
// open.  The rule is validated once at configuration load; Compute assumes
// a valid rule and never fails.
type WeeklyRule struct {
    Weekday  time.Weekday   // day of week the window opens
    Hour     int            // local start hour (0-23)
    Minute   int            // local start minute (0-59)
    Duration time.Duration  // window length; must be positive and under a week
    Location *time.Location // civil timezone the rule is anchored to
}

// Validate reports whether the rule describes a usable weekly window.
// It is called by the configuration loader at startup so that Compute can
// stay failure-free.
func (r WeeklyRule) Validate() error {
    if r.Location == nil {
        return errors.New("schedule: rule location is required")
    }
    if r.Hour < 0 || r.Hour > 23 {
        return errors.New("schedule: rule hour out of range")
    }
    if r.Minute < 0 || r.Minute > 59 {
        return errors.New("schedule: rule minute out of range")
    }
    if r.Duration <= 0 || r.Duration >= 7*24*time.Hour {
        return errors.New("schedule: rule duration must be positive and shorter than a week")
    }
    return nil
}

// Schedule is the answer to "is an auction window open right now, and
// when does the next one start".  CurrentWindowStart/End are only
// meaningful while Active is true.
type Schedule struct {
    Active             bool      // true when now falls inside a window
    CurrentWindowStart time.Time // opening instant of the live window
    CurrentWindowEnd   time.Time // closing instant (exclusive) of the live window
    NextWindowStart    time.Time // opening instant of the following window
}

// Compute resolves the weekly rule against the supplied instant.  The
// window start is inclusive and the end exclusive: now == start is active,
// now == end is not.  All candidate occurrences are constructed with
// time.Date in the rule's civil timezone, stepping by calendar days, so
// the result stays anchored to local wall-clock time across daylight
// saving transitions.
func Compute(now time.Time, rule WeeklyRule) Schedule {
    local := now.In(rule.Location)

    occ := occurrenceOnOrBefore(local, rule)
    end := occ.Add(rule.Duration)
    if !local.Before(occ) && local.Before(end) {
        return Schedule{
            Active:             true,
            CurrentWindowStart: occ,
            CurrentWindowEnd:   end,
            NextWindowStart:    addWeek(occ, rule),
        }
    }
    return Schedule{
        Active:          false,
        NextWindowStart: occurrenceAfter(local, rule),
    }
}

// occurrenceOnOrBefore finds the most recent instant at or before t whose
// local calendar day matches the rule's weekday at the rule's start time.
// Any 8 consecutive days contain such an occurrence, so the loop always
// terminates with a hit.
func occurrenceOnOrBefore(t time.Time, rule WeeklyRule) time.Time {
    year, month, day := t.Date()
    for i := 0; i < 8; i++ {
        cand := time.Date(year, month, day-i, rule.Hour, rule.Minute, 0, 0, rule.Location)
        if cand.Weekday() == rule.Weekday && !cand.After(t) {
            return cand
        }
    }
    return time.Time{} // unreachable for a valid rule
}

// occurrenceAfter finds the first instant strictly after t that matches
// the rule's weekday and start time.
func occurrenceAfter(t time.Time, rule WeeklyRule) time.Time {
    year, month, day := t.Date()
    for i := 0; i < 8; i++ {
        cand := time.Date(year, month, day+i, rule.Hour, rule.Minute, 0, 0, rule.Location)
        if cand.Weekday() == rule.Weekday && cand.After(t) {
            return cand
        }
    }
    return time.Time{} // unreachable for a valid rule
}

// addWeek returns the occurrence exactly one calendar week after occ.
// Stepping by 7 calendar days (not 168 hours) keeps the start time stable
// when a DST shift falls inside the week.
func addWeek(occ time.Time, rule WeeklyRule) time.Time {
    year, month, day := occ.Date()
    return time.Date(year, month, day+7, rule.Hour, rule.Minute, 0, 0, rule.Location)
}
