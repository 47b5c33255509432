// Package units converts particle displacements, measured in reconstructed
// volume coordinates, into physical speeds.
package units

import "fmt"

// Length unit constants for point coordinates.
const (
	Metre      = "m"
	Millimetre = "mm"
	Micrometre = "um"
)

// Speed unit constants.
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidLengthUnits contains all valid coordinate units.
var ValidLengthUnits = []string{Metre, Millimetre, Micrometre}

// ValidSpeedUnits contains all valid speed units.
var ValidSpeedUnits = []string{MPS, MPH, KMPH, KPH}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidLength checks if the given unit is a known coordinate unit.
func IsValidLength(unit string) bool { return contains(ValidLengthUnits, unit) }

// IsValidSpeed checks if the given unit is a known speed unit.
func IsValidSpeed(unit string) bool { return contains(ValidSpeedUnits, unit) }

// MetresPer returns how many metres one coordinate unit spans.
func MetresPer(lengthUnit string) (float64, error) {
	switch lengthUnit {
	case Metre:
		return 1, nil
	case Millimetre:
		return 1e-3, nil
	case Micrometre:
		return 1e-6, nil
	}
	return 0, fmt.Errorf("unknown length unit %q (valid: m, mm, um)", lengthUnit)
}

// ConvertSpeed converts a speed from metres per second to the target units.
// Unknown units fall back to m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// Speed converts a displacement magnitude in coordinate units over dt
// seconds into targetUnits.
func Speed(displacement float64, lengthUnit string, dt float64, targetUnits string) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("frame interval must be positive, got %g", dt)
	}
	scale, err := MetresPer(lengthUnit)
	if err != nil {
		return 0, err
	}
	return ConvertSpeed(displacement*scale/dt, targetUnits), nil
}
