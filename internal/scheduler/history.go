// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package scheduler

import (
	"sync"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// history is a bounded list of run records, newest first.
type history struct {
	mu      sync.Mutex
	size    int
	records []*models.RunRecord
}

func newHistory(size int) *history {
	return &history{size: size}
}

func (h *history) add(rec *models.RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append([]*models.RunRecord{rec}, h.records...)
	if len(h.records) > h.size {
		h.records[h.size] = nil
		h.records = h.records[:h.size]
	}
}

// update applies fn to the record with runID, if it is still retained.
func (h *history) update(runID string, fn func(*models.RunRecord)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.RunID == runID {
			fn(r)
			return
		}
	}
}

func (h *history) list(jobID string) []models.RunRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.RunRecord, 0, len(h.records))
	for _, r := range h.records {
		if jobID == "" || r.JobID == jobID {
			out = append(out, *cloneRecord(r))
		}
	}
	return out
}

func cloneRecord(r *models.RunRecord) *models.RunRecord {
	c := *r
	if r.ExitCode != nil {
		v := *r.ExitCode
		c.ExitCode = &v
	}
	if r.FinishedAt != nil {
		v := *r.FinishedAt
		c.FinishedAt = &v
	}
	c.Rotated = append([]string(nil), r.Rotated...)
	return &c
}
