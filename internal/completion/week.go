package completion

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// WeekKey formats t's ISO-8601 week as "2025-W07".
func WeekKey(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// ParseWeekKey returns the Monday (UTC) that starts the ISO week.
func ParseWeekKey(key string) (time.Time, error) {
	var y, w int
	if n, err := fmt.Sscanf(key, "%4d-W%2d", &y, &w); err != nil || n != 2 {
		return time.Time{}, fmt.Errorf("invalid week key %q", key)
	}
	if w < 1 || w > 53 {
		return time.Time{}, fmt.Errorf("invalid week key %q", key)
	}
	// Jan 4th is always in ISO week 1.
	jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(w-1)*7)
	if WeekKey(monday) != fmt.Sprintf("%04d-W%02d", y, w) {
		return time.Time{}, fmt.Errorf("invalid week key %q", key)
	}
	return monday, nil
}

// WeekKeyForDate maps a "2006-01-02" date to its week key.
func WeekKeyForDate(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return WeekKey(d), nil
}

// WeekDates lists the seven dates of the week.
func WeekDates(key string) ([]string, error) {
	monday, err := ParseWeekKey(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 7)
	for i := range out {
		out[i] = monday.AddDate(0, 0, i).Format(DateLayout)
	}
	return out, nil
}
