// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package logging

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// maxLineBytes caps a single logged line; longer runs without a newline are
// flushed in pieces.
const maxLineBytes = 8 << 10

// LineWriter is an io.Writer that emits one log entry per line written to it.
// The process runner tees child stdout/stderr through it.
type LineWriter struct {
	mu     sync.Mutex
	logger zerolog.Logger
	level  zerolog.Level
	buf    bytes.Buffer
}

// NewLineWriter returns a writer that logs every complete line at level.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLineWriter(logger zerolog.Logger, level zerolog.Level) *LineWriter {
	return &LineWriter{logger: logger, level: level}
}

// NewProcessWriters returns the stdout and stderr line writers for one child
// process. Stdout logs at info and stderr at warn, both tagged with kind,
// label and stream.
func NewProcessWriters(kind, label string) (stdout, stderr *LineWriter) {
	base := With().Str("kind", kind).Str("label", label).Logger()
	stdout = NewLineWriter(base.With().Str("stream", "stdout").Logger(), zerolog.InfoLevel)
	stderr = NewLineWriter(base.With().Str("stream", "stderr").Logger(), zerolog.WarnLevel)
	return stdout, stderr
}

// Write implements io.Writer. It never fails.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if len(data) >= maxLineBytes {
				w.emit(data)
				w.buf.Reset()
			}
			break
		}
		w.emit(data[:i])
		w.buf.Next(i + 1)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.logger.WithLevel(w.level).Msg(string(line))
}
