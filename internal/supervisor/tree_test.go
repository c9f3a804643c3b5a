// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
)

// mockService runs until canceled, failing the first maxFails calls.
type mockService struct {
	name     string
	starts   atomic.Int32
	maxFails int32
}

func (m *mockService) Serve(ctx context.Context) error {
	if n := m.starts.Add(1); n <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTree(t *testing.T) {
	if _, err := NewTree(nil, TreeConfig{}); err == nil {
		t.Error("expected error for nil logger")
	}

	tree, err := NewTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}

	custom := TreeConfig{FailureThreshold: 2, FailureDecay: 1, FailureBackoff: time.Second, ShutdownTimeout: 5 * time.Second}
	tree, err = NewTree(logging.NewSlogLogger(), custom)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	if tree.config != custom {
		t.Errorf("config = %+v, want %+v", tree.config, custom)
	}
}

func TestTree_ServesBothLayers(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{
		FailureBackoff:  10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}

	engine := &mockService{name: "engine"}
	api := &mockService{name: "api", maxFails: 2}
	tree.AddEngineService(engine)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for engine.starts.Load() < 1 || api.starts.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("engine starts %d, api starts %d", engine.starts.Load(), api.starts.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if engine.starts.Load() != 1 {
		t.Errorf("API failures restarted the engine: %d starts", engine.starts.Load())
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}
