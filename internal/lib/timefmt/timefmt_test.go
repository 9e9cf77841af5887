package timefmt

import "testing"

func TestFormatTimeWholeSeconds(t *testing.T) {
	got := FormatTime(125, 2)
	if got != "02:05" {
		t.Fatalf("FormatTime(125, 2) = %q, want %q", got, "02:05")
	}
}

func TestFormatTimeZero(t *testing.T) {
	got := FormatTime(0, 2)
	if got != "00:00" {
		t.Fatalf("FormatTime(0, 2) = %q, want %q", got, "00:00")
	}
}

func TestFormatTimeFraction(t *testing.T) {
	got := FormatTime(90.5, 2)
	if got != "01:30.5" {
		t.Fatalf("FormatTime(90.5, 2) = %q, want %q", got, "01:30.5")
	}
}

func TestFormatTimeFractionRoundsHalfUp(t *testing.T) {
	got := FormatTime(5.125, 2)
	if got != "00:05.13" {
		t.Fatalf("FormatTime(5.125, 2) = %q, want %q", got, "00:05.13")
	}
}

func TestFormatTimeFractionCarriesIntoSeconds(t *testing.T) {
	got := FormatTime(59.999, 2)
	if got != "01:00" {
		t.Fatalf("FormatTime(59.999, 2) = %q, want %q", got, "01:00")
	}
}

func TestFormatTimeZeroPrecisionDropsFraction(t *testing.T) {
	got := FormatTime(59.9, 0)
	if got != "00:59" {
		t.Fatalf("FormatTime(59.9, 0) = %q, want %q", got, "00:59")
	}
}

func TestFormatTimeNegativeClampsToZero(t *testing.T) {
	got := FormatTime(-3, 2)
	if got != "00:00" {
		t.Fatalf("FormatTime(-3, 2) = %q, want %q", got, "00:00")
	}
}
