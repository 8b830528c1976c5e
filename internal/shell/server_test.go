// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_shell

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/meetscribe/config"
	internal_entity "github.com/rapidaai/meetscribe/internal/entity"
	internal_session "github.com/rapidaai/meetscribe/internal/session"
	internal_store "github.com/rapidaai/meetscribe/internal/store"
	"github.com/rapidaai/meetscribe/pkg/commons"
	"github.com/rapidaai/meetscribe/pkg/events"
)

// ============================================================================
// Test helpers
// ============================================================================

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-shell"),
		commons.Level("error"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

type shellFixture struct {
	engine     *gin.Engine
	store      internal_store.Store
	controller *internal_session.Controller
}

// newShellFixture builds the server on a real sqlite store and a session
// controller without backends, so /recording/start answers 409.
func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()
	logger := newTestLogger(t)

	store, err := internal_store.NewSqliteStore(logger, filepath.Join(t.TempDir(), "shell.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewBus()
	controller := internal_session.NewController(logger, store, bus, nil, nil)
	cfg := &config.AppConfig{Host: "127.0.0.1", Port: 0}

	server := NewServer(logger, cfg, store, controller, bus, nil)
	return &shellFixture{engine: server.Engine(), store: store, controller: controller}
}

func (f *shellFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	f.engine.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// ============================================================================
// Meetings
// ============================================================================

func TestListMeetings_ReturnsStoredMeetings(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	_, err := f.store.CreateMeeting(ctx, "Standup")
	require.NoError(t, err)

	recorder := f.request(t, http.MethodGet, "/v1/meetings", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var meetings []internal_entity.Meeting
	require.NoError(t, json.Unmarshal(decodeBody(t, recorder)["meetings"], &meetings))
	require.Len(t, meetings, 1)
	assert.Equal(t, "Standup", meetings[0].Title)
}

func TestGetMeeting_IncludesTranscript(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	id, err := f.store.CreateMeeting(ctx, "Standup")
	require.NoError(t, err)
	_, err = f.store.InsertSegment(ctx, &internal_entity.TranscriptSegment{
		MeetingId: id, Speaker: "You", Text: "hello", TimestampMs: 1000, IsUser: true, Confidence: 1.0,
	})
	require.NoError(t, err)

	recorder := f.request(t, http.MethodGet, fmt.Sprintf("/v1/meetings/%d", id), "")
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	var segments []internal_entity.TranscriptSegment
	require.NoError(t, json.Unmarshal(body["transcript"], &segments))
	require.Len(t, segments, 1)
	assert.Equal(t, "hello", segments[0].Text)
}

func TestGetMeeting_BadIDAndUnknownID(t *testing.T) {
	f := newShellFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.request(t, http.MethodGet, "/v1/meetings/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, f.request(t, http.MethodGet, "/v1/meetings/999", "").Code)
}

func TestDeleteMeeting_RemovesRow(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	id, err := f.store.CreateMeeting(ctx, "Standup")
	require.NoError(t, err)

	recorder := f.request(t, http.MethodDelete, fmt.Sprintf("/v1/meetings/%d", id), "")
	require.Equal(t, http.StatusOK, recorder.Code)

	_, err = f.store.GetMeeting(ctx, id)
	assert.Error(t, err)
}

func TestSearchMeetings_RequiresQuery(t *testing.T) {
	f := newShellFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.request(t, http.MethodGet, "/v1/meetings/search", "").Code)

	_, err := f.store.CreateMeeting(context.Background(), "Roadmap review")
	require.NoError(t, err)

	recorder := f.request(t, http.MethodGet, "/v1/meetings/search?q=roadmap", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var meetings []internal_entity.Meeting
	require.NoError(t, json.Unmarshal(decodeBody(t, recorder)["meetings"], &meetings))
	assert.Len(t, meetings, 1)
}

func TestActionItems_BadIDAndMissingBackend(t *testing.T) {
	f := newShellFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.request(t, http.MethodGet, "/v1/meetings/abc/action-items", "").Code)

	// No summarization backend is configured on the fixture controller.
	recorder := f.request(t, http.MethodGet, "/v1/meetings/1/action-items", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

// ============================================================================
// Recording
// ============================================================================

func TestStartRecording_WithoutBackendAnswersConflict(t *testing.T) {
	f := newShellFixture(t)

	recorder := f.request(t, http.MethodPost, "/v1/recording/start", `{"title":"Standup"}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	meetings, err := f.store.ListMeetings(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestStopRecording_WhileIdleAnswersOK(t *testing.T) {
	f := newShellFixture(t)

	recorder := f.request(t, http.MethodPost, "/v1/recording/stop", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var status internal_session.Status
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.False(t, status.IsRecording)
}

func TestRecordingStatus_Idle(t *testing.T) {
	f := newShellFixture(t)

	recorder := f.request(t, http.MethodGet, "/v1/recording/status", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var status internal_session.Status
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.False(t, status.IsRecording)
}

// ============================================================================
// Settings
// ============================================================================

func TestSettings_UpdateAndReadBack(t *testing.T) {
	f := newShellFixture(t)

	recorder := f.request(t, http.MethodPut, "/v1/settings", `{"summaryProvider":"openai"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.request(t, http.MethodGet, "/v1/settings", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var settings map[string]string
	require.NoError(t, json.Unmarshal(decodeBody(t, recorder)["settings"], &settings))
	assert.Equal(t, "openai", settings["summaryProvider"])
}

func TestUpdateSettings_RejectsNonStringMap(t *testing.T) {
	f := newShellFixture(t)

	recorder := f.request(t, http.MethodPut, "/v1/settings", `{"port": 9180}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
