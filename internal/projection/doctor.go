package projection

import (
	"sort"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/service"

	"github.com/sirupsen/logrus"
)

// DoctorSnapshot lists the services of the selected date with their line items,
// plus the day's summary over completed services.
type DoctorSnapshot struct {
	Date     time.Time              `json:"date"`
	Services []entity.ServiceDetail `json:"services"`
	Summary  entity.DailySummary    `json:"summary"`
}

type Doctor struct {
	*Projection
	board *serviceBoard
}

// NewDoctor builds a dashboard for date. A nil date follows today.
func NewDoctor(log *logrus.Logger, source Source, clock service.Clock, reader ServiceReader, date *time.Time) *Doctor {
	board := &serviceBoard{
		reader:   reader,
		fixedDay: date,
		snapshot: reader.ListDetailsByDate,
		keep: func(s *entity.Service, day time.Time) bool {
			return entity.SameDay(s.ServiceDate, day)
		},
	}
	return &Doctor{
		Projection: newProjection("doctor", log, source, clock, board),
		board:      board,
	}
}

func (d *Doctor) Snapshot() DoctorSnapshot {
	day, services := d.board.list()
	sort.Slice(services, func(i, j int) bool {
		return services[i].ServiceTime < services[j].ServiceTime
	})
	return DoctorSnapshot{
		Date:     day,
		Services: services,
		Summary:  entity.Summarize(day, services),
	}
}
