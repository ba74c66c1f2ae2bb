package converter

import (
	"time"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
)

// ServiceToResponse converts a Service entity to ServiceResponse DTO
func ServiceToResponse(service *entity.Service) *dto.ServiceResponse {
	if service == nil {
		return nil
	}

	return &dto.ServiceResponse{
		ID:            service.ID,
		ClientID:      service.ClientID,
		ServiceDate:   service.ServiceDate.Format(time.DateOnly),
		ServiceTime:   service.ServiceTime,
		ServiceType:   service.ServiceType,
		Status:        string(service.Status),
		PaymentStatus: string(service.PaymentStatus),
		TotalAmount:   service.TotalAmount,
		Notes:         service.Notes,
		CreatedBy:     service.CreatedBy,
		CompletedBy:   service.CompletedBy,
		CompletedAt:   service.CompletedAt,
		Version:       service.Version,
		CreatedAt:     service.CreatedAt,
		UpdatedAt:     service.UpdatedAt,
	}
}

// ServiceDetailToResponse converts a ServiceDetail to ServiceDetailResponse DTO
func ServiceDetailToResponse(detail *entity.ServiceDetail) *dto.ServiceDetailResponse {
	if detail == nil {
		return nil
	}

	items := make([]dto.ServiceItemResponse, len(detail.Lines))
	for i, line := range detail.Lines {
		items[i] = dto.ServiceItemResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.Discount,
			Subtotal:    line.Subtotal,
			Notes:       line.Notes,
		}
	}

	return &dto.ServiceDetailResponse{
		ServiceResponse: *ServiceToResponse(&detail.Service),
		ClientName:      detail.ClientName,
		Items:           items,
	}
}
