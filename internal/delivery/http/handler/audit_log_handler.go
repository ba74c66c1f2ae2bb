package handler

import (
	"net/http"
	"strconv"

	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

func (h *AuditLogHandler) GetRecentAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = n
	}

	logs, err := h.auditLogUsecase.GetRecentAuditLogs(r.Context(), limit)
	if err != nil {
		writeError(w, err, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", logs)
}

func (h *AuditLogHandler) GetEntityHistory(w http.ResponseWriter, r *http.Request) {
	entityID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid entity ID", nil)
		return
	}

	logs, err := h.auditLogUsecase.GetEntityHistory(r.Context(), mux.Vars(r)["type"], entityID)
	if err != nil {
		writeError(w, err, "Failed to get entity history")
		return
	}

	response.Success(w, http.StatusOK, "Entity history retrieved successfully", logs)
}
