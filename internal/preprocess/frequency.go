package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the output format of projected timestamps
const TimestampLayout = "2006-01-02T15:04:05"

// accepted input layouts, tried in order
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601-ish timestamp; zone offsets are kept
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type anchor int

const (
	anchorNone anchor = iota
	anchorEnd
	anchorStart
)

// Frequency is a parsed frequency code such as "1d", "15min", "2h" or "M".
// 고정 간격(tick)은 step, 달력 기준(월/분기/연)은 months + anchor 로 표현
type Frequency struct {
	Code   string
	step   time.Duration
	months int // step in months
	unit   int // 1 month, 3 quarter, 12 year
	anchor anchor
}

var frequencyPattern = regexp.MustCompile(`^(\d*)([A-Za-z]+)$`)

// ParseFrequency parses "<n><unit>" codes.
// tick: s, min/T/m, h/H, d/D, w/W/wk(7일 고정) / calendar: M/ME, MS, Q/QE, QS, Y/YE/A, YS/AS
func ParseFrequency(code string) (Frequency, error) {
	match := frequencyPattern.FindStringSubmatch(strings.TrimSpace(code))
	if match == nil {
		return Frequency{}, fmt.Errorf("unsupported frequency %q", code)
	}

	n := 1
	if match[1] != "" {
		v, err := strconv.Atoi(match[1])
		if err != nil || v <= 0 {
			return Frequency{}, fmt.Errorf("unsupported frequency %q", code)
		}
		n = v
	}

	f := Frequency{Code: code}
	switch match[2] {
	case "s", "S", "sec":
		f.step = time.Duration(n) * time.Second
	case "min", "T", "m":
		f.step = time.Duration(n) * time.Minute
	case "h", "H":
		f.step = time.Duration(n) * time.Hour
	case "d", "D":
		f.step = time.Duration(n) * 24 * time.Hour
	case "w", "W", "wk":
		f.step = time.Duration(n) * 7 * 24 * time.Hour
	case "M", "ME":
		f.months, f.unit, f.anchor = n, 1, anchorEnd
	case "MS":
		f.months, f.unit, f.anchor = n, 1, anchorStart
	case "Q", "QE":
		f.months, f.unit, f.anchor = 3*n, 3, anchorEnd
	case "QS":
		f.months, f.unit, f.anchor = 3*n, 3, anchorStart
	case "Y", "YE", "A":
		f.months, f.unit, f.anchor = 12*n, 12, anchorEnd
	case "YS", "AS":
		f.months, f.unit, f.anchor = 12*n, 12, anchorStart
	default:
		return Frequency{}, fmt.Errorf("unsupported frequency %q", code)
	}
	return f, nil
}

// IsCalendar reports whether the frequency is month/quarter/year anchored
func (f Frequency) IsCalendar() bool {
	return f.anchor != anchorNone
}

// Range returns periods timestamps starting at start (rolled forward onto the
// frequency's anchor when start is off-anchor).
func (f Frequency) Range(start time.Time, periods int) []time.Time {
	if periods <= 0 {
		return nil
	}
	out := make([]time.Time, 0, periods)
	cur := start
	if f.IsCalendar() {
		cur = f.rollForward(start)
	}
	for i := 0; i < periods; i++ {
		out = append(out, cur)
		cur = f.next(cur)
	}
	return out
}

func (f Frequency) next(t time.Time) time.Time {
	if !f.IsCalendar() {
		return t.Add(f.step)
	}
	return f.anchorIn(t.Year(), t.Month()+time.Month(f.months), t)
}

// monthMatches: 분기는 3/6/9/12 말 또는 1/4/7/10 초, 연은 12월 말 또는 1월 초
func (f Frequency) monthMatches(m time.Month) bool {
	switch f.unit {
	case 12:
		if f.anchor == anchorEnd {
			return m == time.December
		}
		return m == time.January
	case 3:
		if f.anchor == anchorEnd {
			return int(m)%3 == 0
		}
		return int(m)%3 == 1
	}
	return true
}

func (f Frequency) onOffset(t time.Time) bool {
	if !f.monthMatches(t.Month()) {
		return false
	}
	if f.anchor == anchorEnd {
		return t.Day() == daysIn(t.Year(), t.Month())
	}
	return t.Day() == 1
}

func (f Frequency) rollForward(t time.Time) time.Time {
	if f.onOffset(t) {
		return t
	}
	year, month := t.Year(), t.Month()
	if f.anchor == anchorStart {
		month++
	}
	for i := 0; i < 24; i++ {
		candidate := f.anchorIn(year, month+time.Month(i), t)
		if f.monthMatches(candidate.Month()) && candidate.After(t) {
			return candidate
		}
	}
	return t
}

// anchorIn places t's wall clock on the anchor day of (year, month); month may overflow
func (f Frequency) anchorIn(year int, month time.Month, clock time.Time) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, clock.Location())
	day := 1
	if f.anchor == anchorEnd {
		day = daysIn(first.Year(), first.Month())
	}
	return time.Date(first.Year(), first.Month(), day,
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), clock.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
