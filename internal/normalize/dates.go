package normalize

import (
	"strings"
	"time"

	"sales-dashboard/internal/types"
)

// DayLabelLayout is the short pt-BR day label (dd/mm/yy)
const DayLabelLayout = "02/01/06"

var fullLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses an emission date and returns its calendar day in loc.
// The day is the one written in the text: an offset such as the Z of
// 2024-03-05T01:00:00Z never shifts it. Inputs longer than a date are also
// tried on their first ten characters.
func ParseDate(v any, loc *time.Location) (*time.Time, bool) {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return nil, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range fullLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			y, m, day := t.Date()
			d := time.Date(y, m, day, 0, 0, 0, 0, loc)
			return &d, true
		}
	}
	if len(s) > 10 {
		head := s[:10]
		for _, layout := range fullLayouts[:2] {
			if t, err := time.ParseInLocation(layout, head, loc); err == nil {
				d := types.Day(t)
				return &d, true
			}
		}
	}
	return nil, false
}

// DateLabel renders a raw date as dd/mm/yy, the raw text when it cannot be
// parsed, or "-" when absent.
func DateLabel(v any, loc *time.Location) string {
	s := String(v)
	if s == "" {
		return "-"
	}
	if t, ok := ParseDate(v, loc); ok {
		return t.Format(DayLabelLayout)
	}
	return s
}
