// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package schedule turns a job's recurrence settings into a 5-field cron
// expression (minute hour day-of-month month day-of-week).
//
// Translate is pure. It checks presence and numeric form of the parameters a
// frequency needs but does not range-check them: an expression such as
// "75 9 * * *" is produced as-is and rejected later when the scheduler
// registers it.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// ErrInvalidSchedule is matched by every *InvalidScheduleError.
var ErrInvalidSchedule = errors.New("invalid schedule")

// InvalidScheduleError reports an unusable recurrence.
type InvalidScheduleError struct {
	Frequency  models.Frequency
	Expression string
	Reason     string
}

func (e *InvalidScheduleError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("invalid schedule %q: %s", e.Expression, e.Reason)
	}
	return fmt.Sprintf("invalid %s schedule: %s", e.Frequency, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidSchedule) work.
func (e *InvalidScheduleError) Is(target error) bool {
	return target == ErrInvalidSchedule
}

// Params are the sub-parameters of a non-custom frequency.
type Params struct {
	// TimeOfDay is "HH:MM". Required for daily, weekly and monthly.
	TimeOfDay string
	// DayOfWeek is 0-6 with 0 = Sunday. Required for weekly.
	DayOfWeek *int
	// DayOfMonth is 1-31. Required for monthly.
	DayOfMonth *int
}

// ParamsFromJob extracts the recurrence parameters of a job.
func ParamsFromJob(j *models.Job) Params {
	return Params{TimeOfDay: j.TimeOfDay, DayOfWeek: j.DayOfWeek, DayOfMonth: j.DayOfMonth}
}

// Translate maps a frequency and its parameters to a cron expression.
//
//	Translate(models.FrequencyDaily, Params{TimeOfDay: "14:30"}, "")   // "30 14 * * *"
//	Translate(models.FrequencyCustom, Params{}, "*/15 * * * *")       // "*/15 * * * *"
func Translate(freq models.Frequency, p Params, raw string) (string, error) {
	switch freq {
	case models.FrequencyHourly:
		return "0 * * * *", nil

	case models.FrequencyDaily:
		hour, minute, err := parseTimeOfDay(freq, p.TimeOfDay)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), nil

	case models.FrequencyWeekly:
		hour, minute, err := parseTimeOfDay(freq, p.TimeOfDay)
		if err != nil {
			return "", err
		}
		if p.DayOfWeek == nil {
			return "", &InvalidScheduleError{Frequency: freq, Reason: "day of week is required"}
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, *p.DayOfWeek), nil

	case models.FrequencyMonthly:
		hour, minute, err := parseTimeOfDay(freq, p.TimeOfDay)
		if err != nil {
			return "", err
		}
		if p.DayOfMonth == nil {
			return "", &InvalidScheduleError{Frequency: freq, Reason: "day of month is required"}
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, *p.DayOfMonth), nil

	case models.FrequencyCustom:
		expr := strings.TrimSpace(raw)
		if expr == "" {
			return "", &InvalidScheduleError{Frequency: freq, Reason: "custom expression is empty"}
		}
		return expr, nil

	default:
		return "", &InvalidScheduleError{Frequency: freq, Reason: "unknown frequency"}
	}
}

// TranslateJob computes the schedule for j from its stored fields.
func TranslateJob(j *models.Job) (string, error) {
	return Translate(j.Frequency, ParamsFromJob(j), j.CustomSchedule)
}

// parseTimeOfDay splits "HH:MM" into base-10 integers without range checks.
func parseTimeOfDay(freq models.Frequency, s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, &InvalidScheduleError{Frequency: freq, Reason: "time of day is required"}
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, &InvalidScheduleError{Frequency: freq, Reason: fmt.Sprintf("time of day %q is not HH:MM", s)}
	}
	hour, err = parseBase10(hh)
	if err != nil {
		return 0, 0, &InvalidScheduleError{Frequency: freq, Reason: fmt.Sprintf("hour %q is not a number", hh)}
	}
	minute, err = parseBase10(mm)
	if err != nil {
		return 0, 0, &InvalidScheduleError{Frequency: freq, Reason: fmt.Sprintf("minute %q is not a number", mm)}
	}
	return hour, minute, nil
}

func parseBase10(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 0)
	return int(n), err
}
