package envi

import (
	"fmt"
	"strings"
)

// Unit labels accepted by ConvertTemperature.
const (
	UnitCelsius    = "C"
	UnitFahrenheit = "F"
)

// ConvertTemperature converts between Celsius and Fahrenheit. Unit labels are
// case-insensitive and may carry surrounding whitespace. No state, no side
// effects; an unrecognized unit label is an error.
func ConvertTemperature(value float64, fromUnit, toUnit string) (float64, error) {
	from, err := normalizeUnit(fromUnit)
	if err != nil {
		return 0, fmt.Errorf("source unit: %w", err)
	}
	to, err := normalizeUnit(toUnit)
	if err != nil {
		return 0, fmt.Errorf("target unit: %w", err)
	}
	if from == to {
		return value, nil
	}
	if from == UnitCelsius {
		return value*9/5 + 32, nil
	}
	return (value - 32) * 5 / 9, nil
}

func normalizeUnit(unit string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case UnitCelsius:
		return UnitCelsius, nil
	case UnitFahrenheit:
		return UnitFahrenheit, nil
	}
	return "", fmt.Errorf("invalid temperature unit %q: must be %q or %q", unit, UnitCelsius, UnitFahrenheit)
}
