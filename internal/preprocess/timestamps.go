package preprocess

// ProjectTimestamps returns horizon timestamps after the last history timestamp
// at the given frequency. Nil when history or frequency is missing or unparsable.
func ProjectTimestamps(history []string, frequency string, horizon int) []string {
	if len(history) == 0 || frequency == "" || horizon <= 0 {
		return nil
	}

	freq, err := ParseFrequency(frequency)
	if err != nil {
		return nil
	}
	last, err := ParseTimestamp(history[len(history)-1])
	if err != nil {
		return nil
	}

	// anchor 포함 horizon+1 개 생성 후 첫 항목 제외
	points := freq.Range(last, horizon+1)[1:]
	out := make([]string, len(points))
	for i, t := range points {
		out[i] = t.Format(TimestampLayout)
	}
	return out
}
