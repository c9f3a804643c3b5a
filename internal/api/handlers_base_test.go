// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/labelkeeper/internal/auth"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/restore"
)

// mockService implements BackupService for testing
type mockService struct {
	createFunc       func(ctx context.Context, in models.JobInput) (*models.Job, error)
	getFunc          func(ctx context.Context, id string) (*models.Job, error)
	listFunc         func(ctx context.Context) ([]*models.Job, error)
	updateFunc       func(ctx context.Context, id string, in models.JobInput) (*models.Job, error)
	deleteFunc       func(ctx context.Context, id string) (*models.Job, error)
	runNowFunc       func(ctx context.Context, id string) (*models.RunRecord, error)
	runsFunc         func(jobID string) []models.RunRecord
	labelsFunc       func(ctx context.Context) ([]models.LabelInfo, error)
	listLocalFunc    func(ctx context.Context, label string) ([]string, error)
	listRemoteFunc   func(ctx context.Context, label, remoteName string, recursive bool) ([]string, error)
	restoreFunc      func(ctx context.Context, req restore.Request) (*restore.Result, error)
	getSettingsFunc  func(ctx context.Context) (*models.Settings, error)
	saveSettingsFunc func(ctx context.Context, in *models.Settings) (*models.Settings, error)
	schedulerStopped bool
	scheduledJobs    int
}

func (m *mockService) Create(ctx context.Context, in models.JobInput) (*models.Job, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return &models.Job{ID: "job-1", Label: in.Label, Frequency: in.Frequency}, nil
}

func (m *mockService) Get(ctx context.Context, id string) (*models.Job, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &models.Job{ID: id, Label: "app"}, nil
}

func (m *mockService) List(ctx context.Context) ([]*models.Job, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockService) Update(ctx context.Context, id string, in models.JobInput) (*models.Job, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, in)
	}
	return &models.Job{ID: id, Label: in.Label}, nil
}

func (m *mockService) Delete(ctx context.Context, id string) (*models.Job, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return &models.Job{ID: id}, nil
}

func (m *mockService) RunNow(ctx context.Context, id string) (*models.RunRecord, error) {
	if m.runNowFunc != nil {
		return m.runNowFunc(ctx, id)
	}
	return &models.RunRecord{RunID: "run-1", JobID: id, Status: models.RunStatusRunning}, nil
}

func (m *mockService) Runs(jobID string) []models.RunRecord {
	if m.runsFunc != nil {
		return m.runsFunc(jobID)
	}
	return nil
}

func (m *mockService) Labels(ctx context.Context) ([]models.LabelInfo, error) {
	if m.labelsFunc != nil {
		return m.labelsFunc(ctx)
	}
	return nil, nil
}

func (m *mockService) ListLocalArchives(ctx context.Context, label string) ([]string, error) {
	if m.listLocalFunc != nil {
		return m.listLocalFunc(ctx, label)
	}
	return nil, nil
}

func (m *mockService) ListRemoteArchives(ctx context.Context, label, remoteName string, recursive bool) ([]string, error) {
	if m.listRemoteFunc != nil {
		return m.listRemoteFunc(ctx, label, remoteName, recursive)
	}
	return nil, nil
}

func (m *mockService) Restore(ctx context.Context, req restore.Request) (*restore.Result, error) {
	if m.restoreFunc != nil {
		return m.restoreFunc(ctx, req)
	}
	return &restore.Result{State: restore.StateCompleted}, nil
}

func (m *mockService) GetSettings(ctx context.Context) (*models.Settings, error) {
	if m.getSettingsFunc != nil {
		return m.getSettingsFunc(ctx)
	}
	return &models.Settings{}, nil
}

func (m *mockService) SaveSettings(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	if m.saveSettingsFunc != nil {
		return m.saveSettingsFunc(ctx, in)
	}
	return in, nil
}

func (m *mockService) ScheduledJobs() int { return m.scheduledJobs }

func (m *mockService) SchedulerRunning() bool { return !m.schedulerStopped }

func (m *mockService) StoreBackend() string { return "memory" }

const testJWTSecret = "test_secret_with_at_least_32_characters_for_testing"

// testEnvelope mirrors models.APIResponse with Data left raw.
type testEnvelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// newTestRouter builds the full router. An empty password disables auth.
func newTestRouter(t *testing.T, svc *mockService, password string) http.Handler {
	t.Helper()

	var authenticator *auth.Authenticator
	if password != "" {
		tokens, err := auth.NewTokenManager(testJWTSecret, time.Hour)
		if err != nil {
			t.Fatalf("NewTokenManager: %v", err)
		}
		authenticator, err = auth.NewAuthenticator(password, tokens)
		if err != nil {
			t.Fatalf("NewAuthenticator: %v", err)
		}
	}

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(NewHandler(svc, authenticator), NewChiMiddleware(cfg))
}

// doRequest sends a request through h. body is JSON-encoded unless it is a string.
func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env testEnvelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
}
