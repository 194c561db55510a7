package utils

import (
	"regexp"
	"time"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// IsClock reports whether s is a 24-hour HH:MM time.
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// NormalizeClock accepts H:MM or HH:MM and returns HH:MM.
func NormalizeClock(s string) (string, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", false
	}
	out := t.Format("15:04")
	return out, IsClock(out)
}

// TimeToMinutes converts time string to minutes since midnight
func TimeToMinutes(timeStr string) int {
	t, _ := time.Parse("15:04", timeStr)
	return t.Hour()*60 + t.Minute()
}
