package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postCommand(t *testing.T, h *HTTPHandler, token string, body any) (*httptest.ResponseRecorder, CommandHTTPResponse) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/command", &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)

	var resp CommandHTTPResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHTTPHandler_Command(t *testing.T) {
	h := newHarness(t)
	api := NewHTTPHandler(h.dispatcher, "secret")

	w, resp := postCommand(t, api, "secret", CommandHTTPRequest{Author: "ana", Content: "$add 2 rope"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Added 2x rope to the Guild's bag.", resp.Reply)
	assert.Equal(t, 2, h.svc.Snapshot().Inventory["rope"])

	w, resp = postCommand(t, api, "secret", CommandHTTPRequest{Content: "$remove 9 rope"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Not enough rope in the bag.", resp.Reply)

	w, resp = postCommand(t, api, "secret", CommandHTTPRequest{Content: "$add x rope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid arguments. Please check your command format.", resp.Reply)
}

func TestHTTPHandler_Duplicate(t *testing.T) {
	h := newHarness(t)
	api := NewHTTPHandler(h.dispatcher, "")

	body := CommandHTTPRequest{RequestID: "msg-1", Content: "$ga 5"}
	w, _ := postCommand(t, api, "", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := postCommand(t, api, "", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate request", resp.Message)
	assert.Equal(t, 5, h.svc.Currency()["gp"])
}

func TestHTTPHandler_Rejects(t *testing.T) {
	h := newHarness(t)
	api := NewHTTPHandler(h.dispatcher, "secret")

	w, resp := postCommand(t, api, "wrong", CommandHTTPRequest{Content: "$h"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", resp.Message)

	w, resp = postCommand(t, api, "secret", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", resp.Message)

	w, resp = postCommand(t, api, "secret", CommandHTTPRequest{Author: "ana"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields", resp.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/command", nil)
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPHandler_Closed(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Close()
	api := NewHTTPHandler(h.dispatcher, "")

	w, resp := postCommand(t, api, "", CommandHTTPRequest{Content: "$list"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "shutting down", resp.Message)
}

func TestHTTPHandler_HealthCheck(t *testing.T) {
	api := NewHTTPHandler(nil, "")

	w := httptest.NewRecorder()
	api.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
