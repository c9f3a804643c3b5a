// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package models holds the domain and wire types shared by the engine and the
// HTTP layer.
package models

import (
	"strings"
	"time"
)

// DefaultRetentionCount applies when a job omits retention_count or sends 0.
const DefaultRetentionCount = 5

// Frequency is the coarse recurrence category of a job.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// Job is a persisted backup schedule bound to a label.
//
// Schedule is always derived from Frequency and its sub-parameters; it is
// recomputed on every create and update and never accepted from clients.
type Job struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Frequency      Frequency `json:"frequency"`
	TimeOfDay      string    `json:"time_of_day,omitempty"`
	DayOfWeek      *int      `json:"day_of_week,omitempty"`
	DayOfMonth     *int      `json:"day_of_month,omitempty"`
	CustomSchedule string    `json:"custom_schedule,omitempty"`
	Schedule       string    `json:"schedule"`
	Enabled        bool      `json:"enabled"`
	UseRemote      bool      `json:"use_remote"`
	RemoteName     string    `json:"remote_name"`
	RetentionCount int       `json:"retention_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate shared records.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.DayOfWeek != nil {
		v := *j.DayOfWeek
		c.DayOfWeek = &v
	}
	if j.DayOfMonth != nil {
		v := *j.DayOfMonth
		c.DayOfMonth = &v
	}
	return &c
}

// JobInput carries the mutable fields of a job for create and full-replace
// update. Omitted Enabled means true.
type JobInput struct {
	Label          string    `json:"label" validate:"required,max=128,label"`
	Frequency      Frequency `json:"frequency" validate:"required,oneof=hourly daily weekly monthly custom"`
	TimeOfDay      string    `json:"time_of_day" validate:"omitempty,hhmm"`
	DayOfWeek      *int      `json:"day_of_week"`
	DayOfMonth     *int      `json:"day_of_month"`
	CustomSchedule string    `json:"custom_schedule" validate:"max=256"`
	Enabled        *bool     `json:"enabled"`
	UseRemote      bool      `json:"use_remote"`
	RemoteName     string    `json:"remote_name" validate:"required_if=UseRemote true,max=128,remotename"`
	RetentionCount int       `json:"retention_count" validate:"gte=0"`
}

// Normalize trims whitespace and applies the documented defaults.
func (in *JobInput) Normalize() {
	in.Label = strings.TrimSpace(in.Label)
	in.TimeOfDay = strings.TrimSpace(in.TimeOfDay)
	in.CustomSchedule = strings.TrimSpace(in.CustomSchedule)
	in.RemoteName = strings.TrimSpace(in.RemoteName)
	if !in.UseRemote {
		in.RemoteName = ""
	}
	if in.RetentionCount == 0 {
		in.RetentionCount = DefaultRetentionCount
	}
}

// IsEnabled resolves the optional Enabled flag.
func (in *JobInput) IsEnabled() bool {
	return in.Enabled == nil || *in.Enabled
}

// LabelInfo is one entry of the labels listing.
type LabelInfo struct {
	Label      string `json:"label"`
	UseRemote  bool   `json:"use_remote"`
	RemoteName string `json:"remote_name"`
}
