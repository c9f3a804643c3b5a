// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package runner

import "sync"

// TailBuffer is an io.Writer that keeps only the last size bytes written.
type TailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	size  int
	start int
	n     int
	total int64
}

// NewTailBuffer returns a buffer retaining at most size bytes.
func NewTailBuffer(size int) *TailBuffer {
	if size < 0 {
		size = 0
	}
	return &TailBuffer{size: size}
}

// Write implements io.Writer. It never fails.
func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := len(p)
	b.total += int64(written)
	if b.size == 0 || written == 0 {
		return written, nil
	}
	if b.buf == nil {
		b.buf = make([]byte, b.size)
	}

	if written >= b.size {
		copy(b.buf, p[written-b.size:])
		b.start, b.n = 0, b.size
		return written, nil
	}

	end := (b.start + b.n) % b.size
	k := copy(b.buf[end:], p)
	copy(b.buf, p[k:])

	b.n += written
	if b.n > b.size {
		b.start = (b.start + b.n - b.size) % b.size
		b.n = b.size
	}
	return written, nil
}

// Bytes returns the retained tail in write order.
func (b *TailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, b.n)
	if b.n == 0 {
		return out
	}
	end := b.start + b.n
	if end > b.size {
		end = b.size
	}
	k := copy(out, b.buf[b.start:end])
	copy(out[k:], b.buf[:b.n-k])
	return out
}

// String returns the retained tail.
func (b *TailBuffer) String() string {
	return string(b.Bytes())
}

// Total is the number of bytes ever written.
func (b *TailBuffer) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Truncated reports whether older output was discarded.
func (b *TailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total > int64(b.n)
}
