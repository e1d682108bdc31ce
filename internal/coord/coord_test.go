package coord

import (
	"errors"
	"math"
	"testing"
)

func TestParseSexagesimal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want float64
	}{
		{"12:30:00", 12.5},
		{"-45:30:36", -45.51},
		{"+01:00:00.0", 1},
		{"'05:15'", 5.25},
		{"7", 7},
	}
	for _, tc := range tests {
		got, err := ParseSexagesimal(tc.in)
		if err != nil {
			t.Fatalf("ParseSexagesimal(%q): %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("ParseSexagesimal(%q) mismatch: got %v want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "aa:bb", "1:2:3:4", "10:75:00"} {
		if _, err := ParseSexagesimal(bad); !errors.Is(err, ErrSexagesimal) {
			t.Fatalf("ParseSexagesimal(%q) error mismatch: got %v", bad, err)
		}
	}
}

func TestFormatSexagesimal(t *testing.T) {
	t.Parallel()
	if got := FormatSexagesimal(12.5, 4, false); got != "12:30:00.0000" {
		t.Fatalf("format mismatch: got %q", got)
	}
	if got := FormatSexagesimal(-45.51, 3, true); got != "-45:30:36.000" {
		t.Fatalf("format mismatch: got %q", got)
	}
	if got := FormatSexagesimal(1.0/3600*59.99996, 4, true); got != "+00:01:00.0000" {
		t.Fatalf("carry mismatch: got %q", got)
	}
}

func TestRADecRoundTrip(t *testing.T) {
	t.Parallel()
	ra := 5.5 * math.Pi / 12
	dec := -(21 + 59.0/60) * math.Pi / 180
	gotRA, err := ParseRA(FormatRA(ra))
	if err != nil {
		t.Fatalf("parse RA: %v", err)
	}
	if math.Abs(gotRA-ra) > 1e-8 {
		t.Fatalf("RA mismatch: got %v want %v", gotRA, ra)
	}
	gotDec, err := ParseDec(FormatDec(dec))
	if err != nil {
		t.Fatalf("parse Dec: %v", err)
	}
	if math.Abs(gotDec-dec) > 1e-8 {
		t.Fatalf("Dec mismatch: got %v want %v", gotDec, dec)
	}
}

func TestSplitJoinMJD(t *testing.T) {
	t.Parallel()
	mjd := 56789.123456789
	days, secs, offs := SplitMJD(mjd)
	if days != 56789 {
		t.Fatalf("days mismatch: got %d want 56789", days)
	}
	if secs != 10667 {
		t.Fatalf("secs mismatch: got %d want 10667", secs)
	}
	if math.Abs(offs) > 0.5 {
		t.Fatalf("offset out of range: %v", offs)
	}
	if back := JoinMJD(days, secs, offs); math.Abs(back-mjd) > 1e-9 {
		t.Fatalf("join mismatch: got %v want %v", back, mjd)
	}
}

func TestDateObs(t *testing.T) {
	t.Parallel()
	if got := DateObs(40587.5); got != "1970-01-01T12:00:00" {
		t.Fatalf("DateObs mismatch: got %q", got)
	}
	if got := DateObs(51544); got != "2000-01-01T00:00:00" {
		t.Fatalf("DateObs mismatch: got %q", got)
	}
}
