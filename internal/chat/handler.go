// Package chat exposes the agent over HTTP: one chat endpoint plus
// history, reset and stats for conversation management.
package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/learnly-platform/learnly/internal/agent"
	"github.com/learnly-platform/learnly/internal/api"
)

// ChatRequest is the body of POST /api/v1/agent/chat.
type ChatRequest struct {
	UserID  string `json:"user_id" validate:"required,min=1,max=255"`
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// Handler handles agent HTTP endpoints.
type Handler struct {
	engine   *agent.Engine
	validate *validator.Validate
}

// NewHandler creates a new chat handler.
func NewHandler(engine *agent.Engine) *Handler {
	return &Handler{
		engine:   engine,
		validate: validator.New(),
	}
}

// Chat runs one reasoning turn for a user message.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp, err := h.engine.Chat(r.Context(), req.UserID, req.Message)
	if err != nil {
		slog.Error("chat turn failed", "user_id", req.UserID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}

// History returns recent plain conversation turns for a user.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, api.NewValidationError("user_id is required"))
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	turns := h.engine.History(r.Context(), userID, limit)
	if turns == nil {
		turns = []agent.Turn{}
	}
	api.JSON(w, http.StatusOK, turns)
}

// Reset deletes all conversation state for a user.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, api.NewValidationError("user_id is required"))
		return
	}

	if err := h.engine.Reset(r.Context(), userID); err != nil {
		slog.Error("resetting conversation", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "conversation reset")
}

// Stats returns aggregate conversation counters for a user.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, api.NewValidationError("user_id is required"))
		return
	}

	stats, err := h.engine.Stats(r.Context(), userID)
	if err != nil {
		slog.Error("loading conversation stats", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, stats)
}
