package handler

import (
	"errors"
	"net/http"

	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// errorDetail is the error payload for classified engine errors
type errorDetail struct {
	Kind       string `json:"kind"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func detailOf(err error) *errorDetail {
	var e *errs.Error
	if !errors.As(err, &e) {
		return nil
	}
	d := &errorDetail{
		Kind:       e.Kind.Error(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Status:     e.Status,
	}
	if e.Err != nil && !errors.Is(e.Kind, errs.ErrStorageFailure) {
		d.Reason = e.Err.Error()
	}
	return d
}

// writeError maps usecase errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrClientNotFound):
		response.Error(w, http.StatusBadRequest, "Client not found", nil)
	case errors.Is(err, usecase.ErrProductNotFound):
		response.Error(w, http.StatusBadRequest, "Product not found", nil)
	case errors.Is(err, usecase.ErrInvalidSchedule):
		response.Error(w, http.StatusBadRequest, "Invalid service date or time", nil)
	case errors.Is(err, usecase.ErrUnknownEntityType):
		response.Error(w, http.StatusBadRequest, "Unknown entity type", nil)
	case errors.Is(err, errs.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Resource not found", detailOf(err))
	case errors.Is(err, errs.ErrAlreadyQueued):
		response.Conflict(w, "Service already has an open queue entry", detailOf(err))
	case errors.Is(err, errs.ErrAttendingInProgress):
		response.Conflict(w, "Another client is being attended", detailOf(err))
	case errors.Is(err, errs.ErrCollision):
		response.Conflict(w, "Queue number collision, please retry", detailOf(err))
	case errors.Is(err, errs.ErrInvalidTransition):
		response.UnprocessableEntity(w, "Invalid status transition", detailOf(err))
	case errors.Is(err, errs.ErrStorageFailure):
		response.ServiceUnavailable(w, "")
	default:
		response.InternalServerError(w, fallback)
	}
}

func pathID(r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	return id, err == nil
}

func actorOf(w http.ResponseWriter, r *http.Request) (entity.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not authenticated")
	}
	return actor, ok
}
