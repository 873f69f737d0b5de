package domain

import (
	"strconv"
	"strings"
	"time"
)

// ParseSiteDate parses the source site's day.month.year posting dates,
// e.g. "8.7. 2025" or "12.11.2024". The format is locale text, not a
// contract: on anything unparseable the result is nil and the caller keeps
// going with a degraded sort order.
func ParseSiteDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "N/A", "Date unknown":
		return nil
	}

	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ".")
	if len(parts) < 3 {
		return nil
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	year := time.Now().UTC().Year()
	if parts[2] != "" {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return nil
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}
