package domain

import (
	"testing"
	"time"
)

func TestParseSiteDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{"typical with space", "8.7. 2025", datePtr(2025, 7, 8)},
		{"no spaces", "12.11.2024", datePtr(2024, 11, 12)},
		{"padded", "  1.1. 2023 ", datePtr(2023, 1, 1)},
		{"empty", "", nil},
		{"placeholder", "N/A", nil},
		{"unknown placeholder", "Date unknown", nil},
		{"garbage", "yesterday", nil},
		{"missing year part", "8.7", nil},
		{"non numeric day", "x.7.2025", nil},
		{"month out of range", "5.13.2025", nil},
		{"day out of range", "32.1.2025", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSiteDate(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ParseSiteDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("ParseSiteDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseSiteDateEmptyYearDefaultsToCurrent(t *testing.T) {
	got := ParseSiteDate("8.7. ")
	if got == nil {
		t.Fatal("expected a parsed date for empty year")
	}
	if got.Year() != time.Now().UTC().Year() {
		t.Errorf("year = %d, want current year", got.Year())
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
