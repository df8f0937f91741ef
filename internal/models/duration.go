package models

import (
	"strconv"
	"strings"
)

// DurationFromString normalizes a free-form duration ("1:02:03", "5:30",
// or raw seconds) to whole seconds. Unparseable input yields nil, never an
// error: a bad duration is not worth dropping the episode over.
func DurationFromString(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ":")
	var seconds int
	switch len(parts) {
	case 3:
		h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		s, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}
		seconds = h*3600 + m*60 + s
	case 2:
		m, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		s, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return nil
		}
		seconds = m*60 + s
	case 1:
		s, err := strconv.Atoi(raw)
		if err != nil {
			return nil
		}
		seconds = s
	default:
		return nil
	}
	if seconds < 0 {
		return nil
	}
	return &seconds
}

// DurationFromMillis converts a millisecond track time to whole seconds.
// Zero means the source did not report a duration.
func DurationFromMillis(ms int64) *int {
	if ms <= 0 {
		return nil
	}
	s := int(ms / 1000)
	return &s
}
