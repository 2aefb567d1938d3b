package service

import (
	"math"
	"time"

	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

// CalculateFee prices an interval at the doctor's hourly rate, rounded up to
// the next whole currency unit.
func CalculateFee(hourlyRate float64, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, appErrors.ErrInvalidDuration
	}
	hours := end.Sub(start).Hours()
	return int64(math.Ceil(hours * hourlyRate)), nil
}

// ConvertToMinorUnits converts an INR fee to USD minor units (cents) at the
// given rate, rounding the dollar amount up before expanding to cents.
func ConvertToMinorUnits(fee int64, rate float64) int64 {
	usd := math.Ceil(float64(fee) * rate)
	return int64(usd) * 100
}
