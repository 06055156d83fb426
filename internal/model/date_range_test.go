package model

import (
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestDateRangeOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"identical", DateRange{day(1), day(5)}, DateRange{day(1), day(5)}, true},
		{"partial", DateRange{day(1), day(5)}, DateRange{day(3), day(7)}, true},
		{"contained", DateRange{day(1), day(10)}, DateRange{day(3), day(4)}, true},
		{"back to back", DateRange{day(1), day(3)}, DateRange{day(3), day(5)}, false},
		{"disjoint", DateRange{day(1), day(2)}, DateRange{day(4), day(5)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("%s overlaps %s = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("overlap is not symmetric for %s and %s", tc.a, tc.b)
			}
		})
	}
}

func TestDateRangeOverlapsItself(t *testing.T) {
	for i := 0; i < 10; i++ {
		r := DateRange{day(i), day(i + 1 + i%3)}
		if !r.Overlaps(r) {
			t.Fatalf("%s does not overlap itself", r)
		}
	}
}

func TestDateRangeValid(t *testing.T) {
	if (DateRange{day(2), day(2)}).Valid() {
		t.Fatal("same-day range must be invalid")
	}
	if (DateRange{day(3), day(2)}).Valid() {
		t.Fatal("reversed range must be invalid")
	}
	if !(DateRange{day(2), day(3)}).Valid() {
		t.Fatal("one-night range must be valid")
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2030-01-02", " 2030-01-05 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Nights() != 3 {
		t.Fatalf("nights = %d, want 3", r.Nights())
	}
	if r.String() != "2030-01-02/2030-01-05" {
		t.Fatalf("unexpected string %q", r.String())
	}
	if _, err := ParseDateRange("2030-13-01", "2030-01-05"); err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestNewDateRangeTruncates(t *testing.T) {
	r := NewDateRange(
		time.Date(2030, 3, 1, 17, 45, 0, 0, time.UTC),
		time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC),
	)
	if !r.Start.Equal(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start not truncated: %v", r.Start)
	}
	if r.Nights() != 3 {
		t.Fatalf("nights = %d, want 3", r.Nights())
	}
}
