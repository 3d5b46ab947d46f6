package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Raventwist88/ontrakk/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func TestHandleImport_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"too new", `{"version": "99.0", "timestamp": "t", "dailyEntries": [], "workouts": []}`, http.StatusUnprocessableEntity, "version_too_new"},
		{"no version", `{"timestamp": "t", "dailyEntries": [], "workouts": []}`, http.StatusUnprocessableEntity, "unknown_origin"},
		{"unknown version", `{"version": "0.1", "timestamp": "t", "dailyEntries": []}`, http.StatusUnprocessableEntity, "unknown_version"},
		{"invalid", `{"version": "1.0", "dailyEntries": [], "workouts": []}`, http.StatusUnprocessableEntity, "invalid_backup"},
		{"not a backup", `{"foo": 1}`, http.StatusBadRequest, "unrecognized_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(memory.New(), nil)
			h := NewHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/v1/backups/import", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			h.HandleImport(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}

func TestHandleImport_ValidationDetails(t *testing.T) {
	svc, _, _ := newTestService(memory.New(), nil)
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/backups/import", bytes.NewBufferString(`{"version": "1.0", "dailyEntries": [], "workouts": []}`))
	rr := httptest.NewRecorder()
	h.HandleImport(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, []string{"Missing timestamp"}, decodeError(t, rr).Details)
}

func TestHandleCreateGetRestore(t *testing.T) {
	store := memory.New()
	seed(t, store)
	svc, _, _ := newTestService(store, nil)
	h := NewHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleCreate(rr, httptest.NewRequest(http.MethodPost, "/v1/backups", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	var summary Summary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&summary))
	assert.Equal(t, 2, summary.Entries)
	assert.Equal(t, 1, summary.Workouts)

	req := httptest.NewRequest(http.MethodGet, "/v1/backups/"+summary.ID, nil)
	req.SetPathValue("id", summary.ID)
	rr = httptest.NewRecorder()
	h.HandleGet(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var got Backup
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, summary.ID, got.ID)
	assert.Len(t, got.DailyEntries, 2)

	req = httptest.NewRequest(http.MethodPost, "/v1/backups/"+summary.ID+"/restore", nil)
	req.SetPathValue("id", summary.ID)
	rr = httptest.NewRecorder()
	h.HandleRestore(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var restored RestoreResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&restored))
	assert.Equal(t, RestoreResult{Entries: 2, Workouts: 1}, restored.Restored)
}

func TestHandleGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(memory.New(), nil)
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/backups/missing", nil)
	req.SetPathValue("id", "missing")
	rr := httptest.NewRecorder()
	h.HandleGet(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "backup_not_found", decodeError(t, rr).Code)
}

func TestHandleRestoreData_Legacy(t *testing.T) {
	store := memory.New()
	svc, _, inv := newTestService(store, nil)
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/backups/restore", bytes.NewBufferString(legacyDoc))
	rr := httptest.NewRecorder()
	h.HandleRestoreData(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 2, count(t, store, "dailyEntries"))
	assert.Equal(t, 4, count(t, store, "workouts"))
	assert.Equal(t, 1, inv.calls)

	ctx := context.Background()
	rec, err := store.Get(ctx, "workouts", "workout-1")
	require.NoError(t, err)
	assert.Contains(t, string(rec.Body), `"status":"planned"`)
	assert.Contains(t, string(rec.Body), `"rest":90`)
}

func TestHandleExport(t *testing.T) {
	store := memory.New()
	seed(t, store)
	svc, _, _ := newTestService(store, nil)
	h := NewHandler(svc)

	rr := httptest.NewRecorder()
	h.HandleExport(rr, httptest.NewRequest(http.MethodGet, "/v1/backups/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")

	var b Bundle
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&b))
	assert.Equal(t, CurrentVersion, b.Version)
	assert.Len(t, b.DailyEntries, 2)
	assert.Len(t, b.Workouts, 1)
}
