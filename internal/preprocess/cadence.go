package preprocess

import (
	"errors"
	"fmt"
	"time"
)

// minCadencePoints is the smallest sample that can imply a cadence
const minCadencePoints = 3

// ErrNoCadence is returned when timestamps do not imply one consistent cadence
var ErrNoCadence = errors.New("no consistent cadence")

// InferCadence checks that timestamps advance at one consistent step and
// returns a short description of it ("24h0m0s", "1 month(s) end").
// 고정 간격 또는 달력 기준(같은 일자 / 매월 말일) 월 간격을 인정
func InferCadence(timestamps []string) (string, error) {
	if len(timestamps) < minCadencePoints {
		return "", fmt.Errorf("%w: need at least %d timestamps, got %d", ErrNoCadence, minCadencePoints, len(timestamps))
	}

	parsed := make([]time.Time, len(timestamps))
	for i, ts := range timestamps {
		t, err := ParseTimestamp(ts)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoCadence, err)
		}
		parsed[i] = t
	}

	if step, ok := fixedStep(parsed); ok {
		return step.String(), nil
	}
	if desc, ok := calendarStep(parsed); ok {
		return desc, nil
	}
	return "", fmt.Errorf("%w: irregular spacing", ErrNoCadence)
}

func fixedStep(ts []time.Time) (time.Duration, bool) {
	step := ts[1].Sub(ts[0])
	if step <= 0 {
		return 0, false
	}
	for i := 2; i < len(ts); i++ {
		if ts[i].Sub(ts[i-1]) != step {
			return 0, false
		}
	}
	return step, true
}

func calendarStep(ts []time.Time) (string, bool) {
	first := ts[0]
	monthEnd := first.Day() == daysIn(first.Year(), first.Month())
	step := monthIndex(ts[1]) - monthIndex(first)
	if step <= 0 {
		return "", false
	}

	for i, t := range ts {
		if t.Hour() != first.Hour() || t.Minute() != first.Minute() ||
			t.Second() != first.Second() || t.Nanosecond() != first.Nanosecond() {
			return "", false
		}
		if monthEnd {
			if t.Day() != daysIn(t.Year(), t.Month()) {
				return "", false
			}
		} else if t.Day() != first.Day() {
			return "", false
		}
		if i > 0 && monthIndex(t)-monthIndex(ts[i-1]) != step {
			return "", false
		}
	}

	if monthEnd {
		return fmt.Sprintf("%d month(s) end", step), true
	}
	return fmt.Sprintf("%d month(s) day %d", step, first.Day()), true
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
