package schedule

import (
    "testing"
    "time"

    "github.com/peterldowns/testy/assert"
    "github.com/peterldowns/testy/check"
)

// seoulRule is the production schedule: Thursday 20:00 Asia/Seoul, 2 hours.
func seoulRule(t *testing.T) WeeklyRule {
    t.Helper()
    loc, err := time.LoadLocation("Asia/Seoul")
    assert.Nil(t, err)
    return WeeklyRule{
        Weekday:  time.Thursday,
        Hour:     20,
        Minute:   0,
        Duration: 2 * time.Hour,
        Location: loc,
    }
}

func TestCompute_BeforeWindowOpens(t *testing.T) {
    rule := seoulRule(t)
    // Thursday 2025-01-16 19:59:59 KST, one second before the window.
    now := time.Date(2025, 1, 16, 19, 59, 59, 0, rule.Location)

    s := Compute(now, rule)

    check.False(t, s.Active)
    check.True(t, s.NextWindowStart.Equal(time.Date(2025, 1, 16, 20, 0, 0, 0, rule.Location)))
}

func TestCompute_StartIsInclusive(t *testing.T) {
    rule := seoulRule(t)
    now := time.Date(2025, 1, 16, 20, 0, 0, 0, rule.Location)

    s := Compute(now, rule)

    check.True(t, s.Active)
    check.True(t, s.CurrentWindowStart.Equal(now))
    check.True(t, s.CurrentWindowEnd.Equal(time.Date(2025, 1, 16, 22, 0, 0, 0, rule.Location)))
    // The next window is exactly one week out.
    check.True(t, s.NextWindowStart.Equal(time.Date(2025, 1, 23, 20, 0, 0, 0, rule.Location)))
}

func TestCompute_EndIsExclusive(t *testing.T) {
    rule := seoulRule(t)
    now := time.Date(2025, 1, 16, 22, 0, 0, 0, rule.Location)

    s := Compute(now, rule)

    check.False(t, s.Active)
    check.True(t, s.NextWindowStart.Equal(time.Date(2025, 1, 23, 20, 0, 0, 0, rule.Location)))
}

func TestCompute_LastInstantOfWindowIsActive(t *testing.T) {
    rule := seoulRule(t)
    now := time.Date(2025, 1, 16, 21, 59, 59, int(time.Second-time.Nanosecond), rule.Location)

    s := Compute(now, rule)

    check.True(t, s.Active)
}

func TestCompute_MidWindow(t *testing.T) {
    rule := seoulRule(t)
    now := time.Date(2025, 1, 16, 21, 15, 0, 0, rule.Location)

    s := Compute(now, rule)

    check.True(t, s.Active)
    check.True(t, s.CurrentWindowStart.Equal(time.Date(2025, 1, 16, 20, 0, 0, 0, rule.Location)))
    check.True(t, s.CurrentWindowEnd.Equal(time.Date(2025, 1, 16, 22, 0, 0, 0, rule.Location)))
}

func TestCompute_Deterministic(t *testing.T) {
    rule := seoulRule(t)
    now := time.Date(2025, 6, 5, 20, 30, 0, 0, rule.Location)

    a := Compute(now, rule)
    b := Compute(now, rule)

    check.Equal(t, a, b)
}

func TestCompute_CallerTimezoneDoesNotMatter(t *testing.T) {
    rule := seoulRule(t)
    // The same instant expressed in UTC must produce the same answer.
    kst := time.Date(2025, 1, 16, 20, 0, 0, 0, rule.Location)
    utc := kst.UTC()

    a := Compute(kst, rule)
    b := Compute(utc, rule)

    check.Equal(t, a.Active, b.Active)
    check.True(t, a.CurrentWindowEnd.Equal(b.CurrentWindowEnd))
    check.True(t, a.NextWindowStart.Equal(b.NextWindowStart))
}

func TestCompute_StableAcrossDST(t *testing.T) {
    loc, err := time.LoadLocation("America/New_York")
    assert.Nil(t, err)
    rule := WeeklyRule{
        Weekday:  time.Sunday,
        Hour:     20,
        Minute:   0,
        Duration: 2 * time.Hour,
        Location: loc,
    }
    // 2025-03-09 is the US spring-forward Sunday; 02:00 EST jumps to
    // 03:00 EDT.  The evening window must still open at 20:00 local.
    now := time.Date(2025, 3, 9, 19, 0, 0, 0, loc)

    s := Compute(now, rule)

    check.False(t, s.Active)
    next := s.NextWindowStart.In(loc)
    check.Equal(t, 20, next.Hour())
    check.Equal(t, time.Sunday, next.Weekday())
    check.Equal(t, 9, next.Day())

    // One week earlier (before the shift) the gap between occurrences is
    // 167 wall-clock hours, but the local start time never moves.
    prev := time.Date(2025, 3, 2, 20, 0, 0, 0, loc)
    check.Equal(t, 167*time.Hour, next.Sub(prev))
}

func TestCompute_WeekdayWrapAcrossSaturday(t *testing.T) {
    rule := seoulRule(t)
    // Saturday: the most recent Thursday window is long closed and the
    // next one is five days out.
    now := time.Date(2025, 1, 18, 12, 0, 0, 0, rule.Location)

    s := Compute(now, rule)

    check.False(t, s.Active)
    check.True(t, s.NextWindowStart.Equal(time.Date(2025, 1, 23, 20, 0, 0, 0, rule.Location)))
}

func TestValidate(t *testing.T) {
    loc, err := time.LoadLocation("Asia/Seoul")
    assert.Nil(t, err)

    good := WeeklyRule{Weekday: time.Thursday, Hour: 20, Duration: 2 * time.Hour, Location: loc}
    check.Nil(t, good.Validate())

    cases := []WeeklyRule{
        {Weekday: time.Thursday, Hour: 20, Duration: 2 * time.Hour},                              // missing location
        {Weekday: time.Thursday, Hour: 24, Duration: 2 * time.Hour, Location: loc},               // hour out of range
        {Weekday: time.Thursday, Hour: 20, Minute: 60, Duration: 2 * time.Hour, Location: loc},   // minute out of range
        {Weekday: time.Thursday, Hour: 20, Duration: 0, Location: loc},                           // zero duration
        {Weekday: time.Thursday, Hour: 20, Duration: 7 * 24 * time.Hour, Location: loc},          // a full week
    }
    for _, bad := range cases {
        check.NotNil(t, bad.Validate())
    }
}
