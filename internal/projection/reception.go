package projection

import (
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/service"

	"github.com/sirupsen/logrus"
)

// ReceptionSnapshot lists today's tickets in any status, ordered by number
type ReceptionSnapshot struct {
	Date    time.Time            `json:"date"`
	Tickets []entity.QueueTicket `json:"tickets"`
}

type Reception struct {
	*Projection
	board *ticketBoard
}

func NewReception(log *logrus.Logger, source Source, clock service.Clock, reader TicketReader) *Reception {
	board := newTicketBoard(reader, func(entity.QueueTicket) bool { return true })
	return &Reception{
		Projection: newProjection("reception", log, source, clock, board),
		board:      board,
	}
}

func (r *Reception) Snapshot() ReceptionSnapshot {
	day, tickets := r.board.sorted()
	return ReceptionSnapshot{Date: day, Tickets: tickets}
}
