// Package governance exposes the audit trail the agent produces: every
// tool execution, decision point and conversation reset lands in
// audit_logs via the event stream and is queryable here.
package governance

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/learnly-platform/learnly/internal/api"
	"github.com/learnly-platform/learnly/internal/governance/audit"
)

// Handler provides HTTP handlers for governance endpoints.
type Handler struct {
	auditRepo *audit.Repository
}

// NewHandler creates a new governance Handler.
func NewHandler(auditRepo *audit.Repository) *Handler {
	return &Handler{auditRepo: auditRepo}
}

// ListAuditLogs returns paginated audit logs for a user.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, api.NewValidationError("user_id is required"))
		return
	}

	params := parseAuditParams(r)

	logs, total, err := h.auditRepo.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing audit logs", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseAuditParams(r *http.Request) audit.ListParams {
	params := audit.DefaultListParams()

	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
