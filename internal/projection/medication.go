package projection

import (
	"context"
	"sort"
	"time"

	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/service"

	"github.com/sirupsen/logrus"
)

// MedicationSnapshot lists scheduled services ordered by date and time
type MedicationSnapshot struct {
	Services []entity.ServiceDetail `json:"services"`
}

type Medication struct {
	*Projection
	board *serviceBoard
}

func NewMedication(log *logrus.Logger, source Source, clock service.Clock, reader ServiceReader) *Medication {
	board := &serviceBoard{
		reader: reader,
		snapshot: func(ctx context.Context, _ time.Time) ([]entity.ServiceDetail, error) {
			return reader.ListScheduled(ctx)
		},
		keep: func(s *entity.Service, _ time.Time) bool {
			return s.Status == entity.ServiceStatusScheduled
		},
	}
	return &Medication{
		Projection: newProjection("medication", log, source, clock, board),
		board:      board,
	}
}

func (m *Medication) Snapshot() MedicationSnapshot {
	_, services := m.board.list()
	sort.Slice(services, func(i, j int) bool {
		if !services[i].ServiceDate.Equal(services[j].ServiceDate) {
			return services[i].ServiceDate.Before(services[j].ServiceDate)
		}
		return services[i].ServiceTime < services[j].ServiceTime
	})
	return MedicationSnapshot{Services: services}
}
