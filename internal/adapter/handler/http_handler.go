package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
)

type HTTPHandler struct {
	dispatcher Submitter
	token      string
}

type CommandHTTPRequest struct {
	RequestID string `json:"request_id"`
	Author    string `json:"author"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
}

type CommandHTTPResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHTTPHandler(dispatcher Submitter, token string) *HTTPHandler {
	return &HTTPHandler{dispatcher: dispatcher, token: token}
}

// Routes returns a mux serving /health and /api/command.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/command", h.Command)
	return mux
}

func (h *HTTPHandler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !tokenMatches(r.Header.Get("Authorization"), h.token) {
		writeJSON(w, http.StatusUnauthorized, CommandHTTPResponse{
			Success: false,
			Message: "unauthorized",
		})
		return
	}

	var req CommandHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	reply, err := h.dispatcher.Submit(r.Context(), domain.Request{
		ID:      req.RequestID,
		Author:  req.Author,
		Channel: req.Channel,
		Text:    req.Content,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		if errors.Is(err, bot.ErrDispatcherClosed) {
			status = http.StatusServiceUnavailable
			message = "shutting down"
		}

		writeJSON(w, status, CommandHTTPResponse{
			Success: false,
			Message: message,
		})
		return
	}

	switch reply.Status {
	case domain.RequestStatusDuplicate:
		writeJSON(w, http.StatusConflict, CommandHTTPResponse{
			Success: false,
			Message: "duplicate request",
		})
	case domain.RequestStatusFailed:
		if reply.Content == "" {
			writeJSON(w, http.StatusInternalServerError, CommandHTTPResponse{
				Success: false,
				Message: "internal error",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Reply:   reply.Content,
		})
	default:
		writeJSON(w, http.StatusOK, CommandHTTPResponse{
			Success: true,
			Reply:   reply.Content,
		})
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
