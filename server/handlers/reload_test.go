package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReloader struct {
	err   error
	level string
}

func (m *mockReloader) Reload() error {
	return m.err
}

func (m *mockReloader) LogLevel() string {
	return m.level
}

func TestReloadHandler_Success(t *testing.T) {
	reloader := &mockReloader{level: "debug"}
	handler := NewReloadHandler(slog.Default(), reloader)

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ReloadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "debug", resp.LogLevel)
}

func TestReloadHandler_Error(t *testing.T) {
	reloader := &mockReloader{err: errors.New("config file not found")}
	handler := NewReloadHandler(slog.Default(), reloader)

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "config file not found")
}
