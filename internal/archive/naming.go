// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package archive owns the archive filename convention and local retention.
//
// Archives are named <label>-<YYYYMMDDhhmmss>.tar.gz. The timestamp is fixed
// width and zero padded, so lexical order on names equals chronological order
// for a single label.
package archive

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the time format embedded in archive names.
const TimestampLayout = "20060102150405"

// DefaultExtension is the archive suffix written by the backup executable.
const DefaultExtension = ".tar.gz"

// Name returns the archive name for label at t.
func Name(label string, t time.Time) string {
	return NameWithExt(label, t, DefaultExtension)
}

// NameWithExt is Name with an explicit extension.
func NameWithExt(label string, t time.Time, ext string) string {
	return label + "-" + t.Format(TimestampLayout) + ext
}

// Matches reports whether name is an archive of label: it starts with
// label + "-" and ends with the archive extension.
func Matches(label, name string) bool {
	return MatchesExt(label, name, DefaultExtension)
}

// MatchesExt is Matches with an explicit extension.
func MatchesExt(label, name, ext string) bool {
	if label == "" {
		return false
	}
	prefix := label + "-"
	return len(name) > len(prefix)+len(ext) &&
		strings.HasPrefix(name, prefix) &&
		strings.HasSuffix(name, ext)
}

// SortNewestFirst sorts archive names descending lexically, in place.
func SortNewestFirst(names []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
}

// ParseTimestamp extracts the creation time from an archive name produced by
// Name. Names that match the label but carry a different suffix format
// return an error.
func ParseTimestamp(label, name string) (time.Time, error) {
	if !Matches(label, name) {
		return time.Time{}, fmt.Errorf("%q is not an archive of %q", name, label)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, label+"-"), DefaultExtension)
	t, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse archive timestamp %q: %w", stamp, err)
	}
	return t, nil
}

// FilterNewestFirst keeps the names that are archives of label and sorts them
// newest first.
func FilterNewestFirst(label string, names []string) []string {
	return FilterNewestFirstExt(label, DefaultExtension, names)
}

// FilterNewestFirstExt is FilterNewestFirst for archives written with ext.
func FilterNewestFirstExt(label, ext string, names []string) []string {
	if ext == "" {
		ext = DefaultExtension
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if MatchesExt(label, n, ext) {
			out = append(out, n)
		}
	}
	SortNewestFirst(out)
	return out
}

// ListLocal returns the archives of label in dir, newest first.
// A missing directory yields an empty list.
func ListLocal(dir, label string) ([]string, error) {
	return listLocal(dir, label, DefaultExtension)
}

func listLocal(dir, label, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if MatchesExt(label, e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	SortNewestFirst(names)
	return names, nil
}
