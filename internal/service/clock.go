package service

import (
	"time"

	"go-clinic-queue/internal/domain/entity"
)

// Clock supplies the current instant and the clinic's calendar day
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type systemClock struct {
	loc *time.Location
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now()
}

func (c *systemClock) Today() time.Time {
	return entity.CalendarDay(time.Now(), c.loc)
}
