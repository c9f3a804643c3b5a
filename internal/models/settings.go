// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package models

import (
	"strings"
	"time"
)

// NoIgnorePattern is passed to the backup executable when no ignore patterns
// are configured. It is a regex that matches nothing special to the script.
const NoIgnorePattern = "."

// Settings are process-wide options edited through the settings API.
//
// RemoteConfig is not stored with the rest: it lives in the rclone config file
// handed to subprocesses and is read back from there.
type Settings struct {
	ArchiveNameTemplate string            `json:"archive_name_template"`
	IgnorePatterns      []string          `json:"ignore_patterns"`
	RemoteConfig        string            `json:"remote_config"`
	Preferences         map[string]string `json:"preferences,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at,omitempty"`
}

// IgnorePattern joins the ignore patterns into a single alternation.
func (s *Settings) IgnorePattern() string {
	if s == nil {
		return NoIgnorePattern
	}
	patterns := make([]string, 0, len(s.IgnorePatterns))
	for _, p := range s.IgnorePatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return NoIgnorePattern
	}
	return strings.Join(patterns, "|")
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return &Settings{}
	}
	c := *s
	c.IgnorePatterns = append([]string(nil), s.IgnorePatterns...)
	if s.Preferences != nil {
		c.Preferences = make(map[string]string, len(s.Preferences))
		for k, v := range s.Preferences {
			c.Preferences[k] = v
		}
	}
	return &c
}
