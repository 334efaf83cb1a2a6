package streak

import (
	"strings"
	"time"

	"github.com/julianstephens/streaks/internal/utils"
)

// Window is a calendar week, half-open: [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the Monday-start week containing t, computed in t's location.
// End is seven calendar days after Start, so the boundary stays on local
// midnight across DST changes.
func WeekOf(t time.Time) Window {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	y, m, d := t.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key is the week's Monday as YYYY-MM-DD in the window's zone.
func (w Window) Key() string {
	return utils.FormatDate(w.Start)
}

// Overlaps reports whether the two half-open windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Marker is the value stored in a habit's credited week: the exact window as
// an RFC 3339 interval in UTC. Unlike Key it still identifies the week after
// the configured timezone changes.
func (w Window) Marker() string {
	return w.Start.UTC().Format(time.RFC3339) + "/" + w.End.UTC().Format(time.RFC3339)
}

// ParseMarker reverses Marker. Date-only markers written before markers
// carried the interval are reported as not ok.
func ParseMarker(s string) (Window, bool) {
	startStr, endStr, found := strings.Cut(s, "/")
	if !found {
		return Window{}, false
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return Window{}, false
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil || !end.After(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// CreditedWeekKey renders a credited week marker as the Monday it starts on
// in loc. Date-only markers are returned unchanged.
func CreditedWeekKey(marker string, loc *time.Location) string {
	w, ok := ParseMarker(marker)
	if !ok {
		return marker
	}
	if loc == nil {
		loc = time.UTC
	}
	return utils.FormatDate(w.Start.In(loc))
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// CurrentWeek is WeekOf(clock.Now()).
func CurrentWeek(clock Clock) Window {
	return WeekOf(clock.Now())
}
