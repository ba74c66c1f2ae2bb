package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"
	"go-clinic-queue/pkg/validator"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
	}
}

func (h *QueueHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	var req dto.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	entry, err := h.queueUsecase.CheckIn(r.Context(), actor, req.ServiceID)
	if err != nil {
		writeError(w, err, "Failed to check in")
		return
	}

	response.Success(w, http.StatusCreated, "Checked in successfully", entry)
}

func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	// body is optional; an empty one calls today's queue
	var req dto.CallNextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	queueDate, ok := h.parseDate(w, req.QueueDate)
	if !ok {
		return
	}

	entry, err := h.queueUsecase.CallNext(r.Context(), actor, queueDate)
	if err != nil {
		writeError(w, err, "Failed to call next client")
		return
	}
	if entry == nil {
		response.Success(w, http.StatusOK, "Nobody is waiting", nil)
		return
	}

	response.Success(w, http.StatusOK, "Next client called", entry)
}

func (h *QueueHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid queue entry ID", nil)
		return
	}

	entry, err := h.queueUsecase.MarkDone(r.Context(), actor, id)
	if err != nil {
		writeError(w, err, "Failed to mark queue entry done")
		return
	}

	response.Success(w, http.StatusOK, "Queue entry done", entry)
}

func (h *QueueHandler) CurrentlyAttending(w http.ResponseWriter, r *http.Request) {
	queueDate, ok := h.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	ticket, err := h.queueUsecase.CurrentlyAttending(r.Context(), queueDate)
	if err != nil {
		writeError(w, err, "Failed to get attending client")
		return
	}
	if ticket == nil {
		response.Success(w, http.StatusOK, "Nobody is being attended", nil)
		return
	}

	response.Success(w, http.StatusOK, "Attending client retrieved successfully", ticket)
}

func (h *QueueHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	queueDate, ok := h.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	queue, err := h.queueUsecase.ListQueue(r.Context(), queueDate)
	if err != nil {
		writeError(w, err, "Failed to list queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", queue)
}

// parseDate reads a YYYY-MM-DD date, defaulting to the clinic's today
func (h *QueueHandler) parseDate(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "" {
		return h.queueUsecase.Today(), true
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
		return time.Time{}, false
	}
	return date, true
}
