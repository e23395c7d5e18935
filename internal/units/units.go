// Package units provides shared constants and validation for age units
package units

import "fmt"

// Unit constants, as accepted by --age-units
const (
	Months = "m"
	Days   = "d"
	Years  = "y"
)

// DaysPerYear is the mean Julian year used for day-based ages.
const DaysPerYear = 365.25

// AdultThresholdMonths is the age above which recon-all is run. Scans from
// younger participants are only processed by the clinical pipeline.
const AdultThresholdMonths = 24.0

// ValidUnits contains all valid unit values
var ValidUnits = []string{Months, Days, Years}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, d, y"
}

// ToMonths converts an age expressed in unit to months.
func ToMonths(age float64, unit string) (float64, error) {
	switch unit {
	case Months:
		return age, nil
	case Days:
		return (age / DaysPerYear) * 12, nil
	case Years:
		return age * 12, nil
	default:
		return 0, fmt.Errorf("invalid age unit %q (accepted values: %s)", unit, GetValidUnitsString())
	}
}

// OldEnoughForReconAll reports whether a participant aged ageMonths is
// strictly older than AdultThresholdMonths.
func OldEnoughForReconAll(ageMonths float64) bool {
	return ageMonths > AdultThresholdMonths
}
