package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/response"
	"go-clinic-queue/pkg/validator"

	"github.com/google/uuid"
)

type serviceAction func(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.ServiceResponse, error)

type ServiceHandler struct {
	serviceUsecase usecase.ServiceUsecase
	validator      *validator.CustomValidator
}

func NewServiceHandler(serviceUsecase usecase.ServiceUsecase, validator *validator.CustomValidator) *ServiceHandler {
	return &ServiceHandler{
		serviceUsecase: serviceUsecase,
		validator:      validator,
	}
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	var req dto.CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	svc, err := h.serviceUsecase.CreateService(r.Context(), actor, &req)
	if err != nil {
		writeError(w, err, "Failed to create service")
		return
	}

	response.Success(w, http.StatusCreated, "Service created successfully", svc)
}

func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid service ID", nil)
		return
	}

	svc, err := h.serviceUsecase.GetService(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get service")
		return
	}

	response.Success(w, http.StatusOK, "Service retrieved successfully", svc)
}

func (h *ServiceHandler) StartService(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.serviceUsecase.StartService, "Service started successfully")
}

func (h *ServiceHandler) CompleteService(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.serviceUsecase.CompleteService, "Service completed successfully")
}

func (h *ServiceHandler) CancelService(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.serviceUsecase.CancelService, "Service cancelled successfully")
}

func (h *ServiceHandler) lifecycle(w http.ResponseWriter, r *http.Request, action serviceAction, message string) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid service ID", nil)
		return
	}

	svc, err := action(r.Context(), actor, id)
	if err != nil {
		writeError(w, err, "Failed to update service")
		return
	}

	response.Success(w, http.StatusOK, message, svc)
}

func (h *ServiceHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid service ID", nil)
		return
	}

	var req dto.AddLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	detail, err := h.serviceUsecase.AddLineItem(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, err, "Failed to add line item")
		return
	}

	response.Success(w, http.StatusCreated, "Line item added successfully", detail)
}

func (h *ServiceHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid service ID", nil)
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	svc, err := h.serviceUsecase.UpdatePaymentStatus(r.Context(), actor, id, &req)
	if err != nil {
		writeError(w, err, "Failed to update payment status")
		return
	}

	response.Success(w, http.StatusOK, "Payment status updated successfully", svc)
}

func (h *ServiceHandler) GetFinancialStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid service ID", nil)
		return
	}

	status, err := h.serviceUsecase.GetFinancialStatus(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get financial status")
		return
	}

	response.Success(w, http.StatusOK, "Financial status retrieved successfully", status)
}
