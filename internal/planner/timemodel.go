package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/usis-routine-api/internal/models"
)

// clockLayouts are tried in order; the first match wins.
var clockLayouts = []string{
	"3:04 PM",
	"3:04:05 PM",
	"3 PM",
	"15:04:05",
	"15:04",
}

// dateLayouts accept one or two digit days and months.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2006/1/2",
	"2/1/2006",
}

// DisplaySlots are the standard 80 minute blocks of the teaching day.
var DisplaySlots = []models.TimeWindow{
	{Start: 8 * 60, End: 9*60 + 20, Label: "8:00 AM-9:20 AM"},
	{Start: 9*60 + 30, End: 10*60 + 50, Label: "9:30 AM-10:50 AM"},
	{Start: 11 * 60, End: 12*60 + 20, Label: "11:00 AM-12:20 PM"},
	{Start: 12*60 + 30, End: 13*60 + 50, Label: "12:30 PM-1:50 PM"},
	{Start: 14 * 60, End: 15*60 + 20, Label: "2:00 PM-3:20 PM"},
	{Start: 15*60 + 30, End: 16*60 + 50, Label: "3:30 PM-4:50 PM"},
	{Start: 17 * 60, End: 18*60 + 20, Label: "5:00 PM-6:20 PM"},
}

// ParseMinutes converts a wall-clock string into minutes since midnight and
// reports whether any supported layout matched.
func ParseMinutes(raw string) (int, bool) {
	value := normalizeClock(raw)
	if value == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// ParseToMinutes is ParseMinutes with the unknown sentinel: unparseable input
// yields 0.
func ParseToMinutes(raw string) int {
	minutes, _ := ParseMinutes(raw)
	return minutes
}

func normalizeClock(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "A.M.", "AM")
	value = strings.ReplaceAll(value, "P.M.", "PM")
	value = strings.Join(strings.Fields(value), " ")
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(value, suffix) && !strings.HasSuffix(value, " "+suffix) {
			value = strings.TrimSuffix(value, suffix) + " " + suffix
		}
	}
	return value
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Touching endpoints do not overlap.
func Overlaps(startA, endA, startB, endB int) bool {
	return max(startA, startB) < min(endA, endB)
}

// NormalizeDate renders a date in YYYY-MM-DD form. The boolean is false when
// no supported layout matched.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// FormatMinutes renders minutes since midnight in 12-hour form.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hour := (minutes / 60) % 24
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minutes%60, suffix)
}

// ParseTimeWindow parses "START-END" where both ends use any supported clock
// layout, e.g. "8:00 AM-9:20 AM" or "14:00-15:20".
func ParseTimeWindow(raw string) (models.TimeWindow, error) {
	label := strings.TrimSpace(raw)
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return models.TimeWindow{}, fmt.Errorf("time window %q must have the form START-END", raw)
	}
	start, okStart := ParseMinutes(parts[0])
	end, okEnd := ParseMinutes(parts[1])
	if !okStart || !okEnd {
		return models.TimeWindow{}, fmt.Errorf("time window %q has an unrecognised time", raw)
	}
	if end <= start {
		return models.TimeWindow{}, fmt.Errorf("time window %q ends before it starts", raw)
	}
	return models.TimeWindow{Start: start, End: end, Label: label}, nil
}
