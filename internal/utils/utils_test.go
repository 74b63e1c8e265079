package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("create task: %w", BadRequest("Title is required"))

	apiErr, ok := AsAPIError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Title is required", apiErr.Message)

	_, ok = AsAPIError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json").WithPrefix("api")

	logger.Debug("hidden", nil)
	logger.Info("login succeeded", map[string]interface{}{"email": "a@b.co"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "login succeeded", entry["message"])
	assert.Equal(t, "a@b.co", entry["email"])
	assert.Equal(t, "api", entry["component"])
}

func TestNewLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "loud", "json")
	logger.Debug("dropped", nil)
	assert.Empty(t, buf.String())
	logger.Warn("kept", nil)
	assert.Contains(t, buf.String(), "kept")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NotFound("Task not found"), "Failed to fetch task")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Task not found"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("pq: connection refused"), "Failed to fetch task")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch task"}`, rec.Body.String())
}
