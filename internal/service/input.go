package service

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
)

var dueDateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006",
}

// ParseDueDate reads a due date typed by a user. Besides full dates it
// accepts "hoje"/"today", "amanhã"/"tomorrow" and "dd/mm" in the current
// year. Dates without a time fall at the end of that day.
func ParseDueDate(raw string, now time.Time) (time.Time, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	loc := now.Location()
	endOfDay := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
	}

	switch text {
	case "":
		return time.Time{}, fmt.Errorf("empty date")
	case "hoje", "today":
		return endOfDay(now), nil
	case "amanhã", "amanha", "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}

	for _, layout := range dueDateLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "15:04") {
			t = endOfDay(t)
		}
		return t, nil
	}

	if t, err := time.ParseInLocation("02/01", text, loc); err == nil {
		return endOfDay(time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q, use AAAA-MM-DD or DD/MM", raw)
}

// ParsePriority accepts the stored labels and a few English and short forms.
func ParsePriority(raw string) (model.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "alta", "high", "h", "a", "3":
		return model.PriorityHigh, true
	case "média", "media", "medium", "m", "2":
		return model.PriorityMedium, true
	case "baixa", "low", "l", "b", "1":
		return model.PriorityLow, true
	}
	return "", false
}
