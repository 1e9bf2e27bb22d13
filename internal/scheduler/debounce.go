package scheduler

import (
	"fmt"
	"time"

	"StockSentinel/internal/model"
	"StockSentinel/pkg/errors"
)

const alertLayout = "15:04"

// ShouldFire reports whether a schedule is due in the hour containing now.
// A schedule fires at most once per calendar day and hour, judged in now's location.
func ShouldFire(s model.Schedule, now time.Time) bool {
	if !s.Active {
		return false
	}
	at, err := time.Parse(alertLayout, s.AlertTime)
	if err != nil || at.Hour() != now.Hour() {
		return false
	}
	if s.LastRun != nil {
		last := s.LastRun.In(now.Location())
		if last.Year() == now.Year() && last.YearDay() == now.YearDay() && last.Hour() == now.Hour() {
			return false
		}
	}
	return true
}

// SnapAlertTime rounds "HH:MM" to the trigger hour: minutes >= 30 round up.
func SnapAlertTime(input string) (string, error) {
	at, err := time.Parse(alertLayout, input)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidInput, "alert time %q", input)
	}
	hour := at.Hour()
	if at.Minute() >= 30 {
		hour = (hour + 1) % 24
	}
	return fmt.Sprintf("%02d:00", hour), nil
}
