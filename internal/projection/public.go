package projection

import (
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/service"

	"github.com/sirupsen/logrus"
)

// PublicWaitingLimit caps the waiting tickets shown on the public display
const PublicWaitingLimit = 10

// PublicTicket carries only what the waiting room screen shows
type PublicTicket struct {
	QueueNumber int    `json:"queue_number"`
	ClientName  string `json:"client_name"`
}

type PublicSnapshot struct {
	Date      time.Time      `json:"date"`
	Attending *PublicTicket  `json:"attending"`
	Waiting   []PublicTicket `json:"waiting"`
}

type Public struct {
	*Projection
	board *ticketBoard
}

func NewPublic(log *logrus.Logger, source Source, clock service.Clock, reader TicketReader) *Public {
	board := newTicketBoard(reader, func(t entity.QueueTicket) bool {
		return t.Status != entity.QueueStatusDone
	})
	return &Public{
		Projection: newProjection("public", log, source, clock, board),
		board:      board,
	}
}

func (p *Public) Snapshot() PublicSnapshot {
	day, tickets := p.board.sorted()
	snapshot := PublicSnapshot{Date: day, Waiting: []PublicTicket{}}
	for _, t := range tickets {
		switch t.Status {
		case entity.QueueStatusAttending:
			snapshot.Attending = &PublicTicket{QueueNumber: t.QueueNumber, ClientName: t.ClientName}
		case entity.QueueStatusWaiting:
			if len(snapshot.Waiting) < PublicWaitingLimit {
				snapshot.Waiting = append(snapshot.Waiting, PublicTicket{QueueNumber: t.QueueNumber, ClientName: t.ClientName})
			}
		}
	}
	return snapshot
}
