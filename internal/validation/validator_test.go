// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

type jobRequest struct {
	Label      string `json:"label" validate:"required,label"`
	TimeOfDay  string `json:"time_of_day" validate:"omitempty,hhmm"`
	UseRemote  bool   `json:"use_remote"`
	RemoteName string `json:"remote_name" validate:"required_if=UseRemote true,remotename"`
	Retention  int    `json:"retention_count" validate:"gte=0"`
	File       string `json:"backup_file" validate:"omitempty,basename"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     jobRequest
		wantField string
		wantTag   string
	}{
		{name: "valid", input: jobRequest{Label: "web-db", TimeOfDay: "14:30"}},
		{name: "valid dotted label", input: jobRequest{Label: "com.example.backup=nightly"}},
		{name: "missing label", input: jobRequest{}, wantField: "label", wantTag: "required"},
		{name: "label with slash", input: jobRequest{Label: "../etc"}, wantField: "label", wantTag: "label"},
		{name: "label with space", input: jobRequest{Label: "my label"}, wantField: "label", wantTag: "label"},
		{name: "bad time", input: jobRequest{Label: "x", TimeOfDay: "2pm"}, wantField: "time_of_day", wantTag: "hhmm"},
		{name: "out of range time passes format check", input: jobRequest{Label: "x", TimeOfDay: "25:99"}},
		{name: "remote without name", input: jobRequest{Label: "x", UseRemote: true}, wantField: "remote_name", wantTag: "required_if"},
		{name: "valid remote", input: jobRequest{Label: "x", UseRemote: true, RemoteName: "b2-offsite"}},
		{name: "remote as flag", input: jobRequest{Label: "x", UseRemote: true, RemoteName: "--config=/tmp/evil"}, wantField: "remote_name", wantTag: "remotename"},
		{name: "remote with colon", input: jobRequest{Label: "x", UseRemote: true, RemoteName: "s3:bucket"}, wantField: "remote_name", wantTag: "remotename"},
		{name: "negative retention", input: jobRequest{Label: "x", Retention: -1}, wantField: "retention_count", wantTag: "gte"},
		{name: "path as file", input: jobRequest{Label: "x", File: "../x.tar.gz"}, wantField: "backup_file", wantTag: "basename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			fe := err.Errors()[0]
			if fe.Field != tt.wantField || fe.Tag != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", fe.Field, fe.Tag, tt.wantField, tt.wantTag)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("message %q should name the field", err.Error())
			}
		})
	}
}

func TestRequestValidationError_Details(t *testing.T) {
	err := ValidateStruct(&jobRequest{Label: "", Retention: -3})
	if err == nil {
		t.Fatal("expected validation error")
	}
	details := err.Details()
	fields, ok := details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field entries, got %#v", details)
	}
}

func TestIsBaseName(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"web-20250101000000.tar.gz": true,
		"":                          false,
		".":                         false,
		"..":                        false,
		"a/b.tar.gz":                false,
		`a\b.tar.gz`:                false,
		"/abs.tar.gz":               false,
	}
	for in, want := range tests {
		if got := IsBaseName(in); got != want {
			t.Errorf("IsBaseName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsLabel(t *testing.T) {
	t.Parallel()

	if !IsLabel("nextcloud") || !IsLabel("app_1.data") {
		t.Error("expected plain labels to be accepted")
	}
	for _, bad := range []string{"", "-lead", "a..b", "a/b", "a b", "tab\t"} {
		if IsLabel(bad) {
			t.Errorf("IsLabel(%q) should be false", bad)
		}
	}
}

func TestIsRemoteName(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"s3", "b2-offsite", "gdrive_backup.2", "user@host"} {
		if !IsRemoteName(ok) {
			t.Errorf("IsRemoteName(%q) should be true", ok)
		}
	}
	bad := []string{
		"",
		"-s3",
		"--config=/tmp/attacker.conf --dump",
		"s3:bucket",
		":local",
		"/etc",
		"a/b",
		`a\b`,
		"my remote",
		" s3",
		"s3\n",
		strings.Repeat("r", 129),
	}
	for _, in := range bad {
		if IsRemoteName(in) {
			t.Errorf("IsRemoteName(%q) should be false", in)
		}
	}
}
