package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		check    func(string) bool
		unit     string
		expected bool
	}{
		{"length mm", IsValidLength, Millimetre, true},
		{"length um", IsValidLength, Micrometre, true},
		{"length bogus", IsValidLength, "furlong", false},
		{"speed mps", IsValidSpeed, MPS, true},
		{"speed kph", IsValidSpeed, KPH, true},
		{"speed uppercase", IsValidSpeed, "MPS", false},
		{"speed empty", IsValidSpeed, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.unit); got != tt.expected {
				t.Errorf("check(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		unit     string
		expected float64
	}{
		{"mps passthrough", 1.0, MPS, 1.0},
		{"to kmph", 10.0, KMPH, 36.0},
		{"to kph", 10.0, KPH, 36.0},
		{"to mph", 1.0, MPH, 2.2369362920544},
		{"unknown falls back", 5.0, "knots", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.speedMPS, tt.unit)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ConvertSpeed(%v, %s) = %v, want %v", tt.speedMPS, tt.unit, got, tt.expected)
			}
		})
	}
}

func TestSpeed(t *testing.T) {
	// 2 mm in 1 ms = 2 m/s
	got, err := Speed(2, Millimetre, 1e-3, MPS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("Speed = %v, want 2", got)
	}

	if _, err := Speed(1, Millimetre, 0, MPS); err == nil {
		t.Error("expected error for zero frame interval")
	}
	if _, err := Speed(1, "px", 1, MPS); err == nil {
		t.Error("expected error for unknown length unit")
	}
}
