// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package models

import "testing"

func TestSettings_IgnorePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings *Settings
		want     string
	}{
		{"nil settings", nil, "."},
		{"no patterns", &Settings{}, "."},
		{"blank patterns", &Settings{IgnorePatterns: []string{" ", ""}}, "."},
		{"single", &Settings{IgnorePatterns: []string{"cache"}}, "cache"},
		{"joined", &Settings{IgnorePatterns: []string{"cache", " tmp ", "*.log"}}, "cache|tmp|*.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IgnorePattern(); got != tt.want {
				t.Errorf("IgnorePattern() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJobInput_Normalize(t *testing.T) {
	t.Parallel()

	in := JobInput{
		Label:      "  web  ",
		Frequency:  FrequencyDaily,
		TimeOfDay:  " 14:30 ",
		RemoteName: "s3",
	}
	in.Normalize()

	if in.Label != "web" {
		t.Errorf("Label = %q, want web", in.Label)
	}
	if in.TimeOfDay != "14:30" {
		t.Errorf("TimeOfDay = %q", in.TimeOfDay)
	}
	if in.RemoteName != "" {
		t.Errorf("RemoteName should be cleared when UseRemote is false, got %q", in.RemoteName)
	}
	if in.RetentionCount != DefaultRetentionCount {
		t.Errorf("RetentionCount = %d, want %d", in.RetentionCount, DefaultRetentionCount)
	}
	if !in.IsEnabled() {
		t.Error("omitted Enabled should default to true")
	}

	disabled := false
	in.Enabled = &disabled
	if in.IsEnabled() {
		t.Error("explicit false should disable")
	}
}

func TestJob_Clone(t *testing.T) {
	t.Parallel()

	dow := 3
	j := &Job{ID: "a", DayOfWeek: &dow}
	c := j.Clone()
	*c.DayOfWeek = 5
	c.ID = "b"

	if *j.DayOfWeek != 3 || j.ID != "a" {
		t.Error("Clone shares state with the original")
	}
	if (*Job)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestFrequency_Valid(t *testing.T) {
	t.Parallel()

	for _, f := range []Frequency{FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom} {
		if !f.Valid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if Frequency("yearly").Valid() {
		t.Error("yearly should be invalid")
	}
}

func TestSettings_Clone(t *testing.T) {
	t.Parallel()

	s := &Settings{IgnorePatterns: []string{"a"}, Preferences: map[string]string{"theme": "dark"}}
	c := s.Clone()
	c.IgnorePatterns[0] = "b"
	c.Preferences["theme"] = "light"

	if s.IgnorePatterns[0] != "a" || s.Preferences["theme"] != "dark" {
		t.Error("Clone shares state with the original")
	}
}
