package converter

import (
	"time"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
)

// QueueEntryToResponse converts a QueueEntry entity to QueueEntryResponse DTO
func QueueEntryToResponse(entry *entity.QueueEntry) *dto.QueueEntryResponse {
	if entry == nil {
		return nil
	}

	return &dto.QueueEntryResponse{
		ID:          entry.ID,
		ServiceID:   entry.ServiceID,
		QueueDate:   entry.QueueDate.Format(time.DateOnly),
		QueueNumber: entry.QueueNumber,
		Status:      string(entry.Status),
		Outcome:     string(entry.Outcome),
		CalledAt:    entry.CalledAt,
		DoneAt:      entry.DoneAt,
		Version:     entry.Version,
		CreatedAt:   entry.CreatedAt,
	}
}

// QueueTicketToResponse converts a QueueTicket to QueueTicketResponse DTO
func QueueTicketToResponse(ticket *entity.QueueTicket) *dto.QueueTicketResponse {
	if ticket == nil {
		return nil
	}

	return &dto.QueueTicketResponse{
		EntryID:     ticket.EntryID,
		ServiceID:   ticket.ServiceID,
		ClientName:  ticket.ClientName,
		ServiceType: ticket.ServiceType,
		QueueNumber: ticket.QueueNumber,
		Status:      string(ticket.Status),
		Outcome:     string(ticket.Outcome),
		CalledAt:    ticket.CalledAt,
	}
}

// QueueTicketsToResponses converts a slice of QueueTicket to slice of QueueTicketResponse DTOs
func QueueTicketsToResponses(tickets []entity.QueueTicket) []dto.QueueTicketResponse {
	responses := make([]dto.QueueTicketResponse, len(tickets))
	for i := range tickets {
		responses[i] = *QueueTicketToResponse(&tickets[i])
	}
	return responses
}
