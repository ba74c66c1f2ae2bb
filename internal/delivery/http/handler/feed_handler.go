package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go-clinic-queue/internal/projection"

	"github.com/igm/sockjs-go/sockjs"
	"github.com/sirupsen/logrus"
)

const (
	closeInvalidRequest = 4000
	closeShuttingDown   = 4001
)

// feedMessage is the frame pushed to feed clients; every frame is a full snapshot
type feedMessage struct {
	Type string      `json:"type"`
	Feed string      `json:"feed"`
	Data interface{} `json:"data"`
}

// DoctorFactory builds a dashboard projection for one connection. A nil date follows today.
type DoctorFactory func(date *time.Time) *projection.Doctor

type FeedHandler struct {
	log        *logrus.Logger
	ctx        context.Context
	reception  *projection.Reception
	medication *projection.Medication
	public     *projection.Public
	newDoctor  DoctorFactory
}

// NewFeedHandler serves live projection feeds over SockJS. Per-connection
// projections stop when ctx is cancelled.
func NewFeedHandler(
	ctx context.Context,
	log *logrus.Logger,
	reception *projection.Reception,
	medication *projection.Medication,
	public *projection.Public,
	newDoctor DoctorFactory,
) *FeedHandler {
	return &FeedHandler{
		log:        log,
		ctx:        ctx,
		reception:  reception,
		medication: medication,
		public:     public,
		newDoctor:  newDoctor,
	}
}

func (h *FeedHandler) Reception(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		h.stream(session, "reception", h.reception.Projection, func() interface{} {
			return h.reception.Snapshot()
		})
	})
}

func (h *FeedHandler) Medication(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		h.stream(session, "medication", h.medication.Projection, func() interface{} {
			return h.medication.Snapshot()
		})
	})
}

func (h *FeedHandler) Public(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		h.stream(session, "public", h.public.Projection, func() interface{} {
			return h.public.Snapshot()
		})
	})
}

// Doctor serves the dashboard for ?date=YYYY-MM-DD, or today when omitted
func (h *FeedHandler) Doctor(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		date, err := feedDate(session.Request())
		if err != nil {
			_ = session.Close(closeInvalidRequest, "invalid date")
			return
		}

		ctx, cancel := context.WithCancel(h.ctx)
		defer cancel()

		doctor := h.newDoctor(date)
		go func() {
			if err := doctor.Run(ctx); err != nil {
				h.log.Warnf("Doctor feed projection stopped: %+v", err)
			}
		}()

		h.stream(session, "doctor", doctor.Projection, func() interface{} {
			return doctor.Snapshot()
		})
	})
}

func feedDate(r *http.Request) (*time.Time, error) {
	if r == nil {
		return nil, nil
	}
	v := r.URL.Query().Get("date")
	if v == "" {
		return nil, nil
	}
	date, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// stream pushes a snapshot once the projection is ready and again on every change
func (h *FeedHandler) stream(session sockjs.Session, feed string, p *projection.Projection, snapshot func() interface{}) {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			// clients only listen; reading detects disconnects
			if _, err := session.Recv(); err != nil {
				return
			}
		}
	}()

	signals, stop := p.Watch()
	defer stop()

	select {
	case <-p.Ready():
	case <-closed:
		return
	case <-h.ctx.Done():
		_ = session.Close(closeShuttingDown, "server shutting down")
		return
	}

	if err := h.send(session, feed, snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-h.ctx.Done():
			_ = session.Close(closeShuttingDown, "server shutting down")
			return
		case <-signals:
			if err := h.send(session, feed, snapshot()); err != nil {
				return
			}
		}
	}
}

func (h *FeedHandler) send(session sockjs.Session, feed string, data interface{}) error {
	payload, err := json.Marshal(feedMessage{Type: "snapshot", Feed: feed, Data: data})
	if err != nil {
		h.log.Warnf("Failed to encode %s feed snapshot: %+v", feed, err)
		return err
	}
	if err := session.Send(string(payload)); err != nil {
		h.log.Debugf("Feed %s session %s gone: %+v", feed, session.ID(), err)
		return err
	}
	return nil
}
