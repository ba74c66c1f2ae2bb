package usecase

import (
	"context"
	"errors"
	"testing"

	"go-clinic-queue/internal/delivery/dto"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/internal/domain/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	svc := h.createService(t)
	if svc.Status != string(entity.ServiceStatusScheduled) || svc.PaymentStatus != string(entity.PaymentStatusPending) {
		t.Fatalf("new service=%+v", svc)
	}
	if svc.Version != 1 || !svc.TotalAmount.IsZero() || svc.CreatedBy != reception.UserID {
		t.Fatalf("new service=%+v", svc)
	}
	if h.events.count() != 1 {
		t.Fatalf("events=%d, want 1", h.events.count())
	}

	cases := []struct {
		name string
		req  dto.CreateServiceRequest
		want error
	}{
		{"unknown client", dto.CreateServiceRequest{ClientID: uuid.New(), ServiceDate: "2026-03-09", ServiceTime: "10:00", ServiceType: "consultation"}, ErrClientNotFound},
		{"bad date", dto.CreateServiceRequest{ClientID: h.client.ID, ServiceDate: "09/03/2026", ServiceTime: "10:00", ServiceType: "consultation"}, ErrInvalidSchedule},
		{"bad time", dto.CreateServiceRequest{ClientID: h.client.ID, ServiceDate: "2026-03-09", ServiceTime: "25:61", ServiceType: "consultation"}, ErrInvalidSchedule},
	}
	for _, tt := range cases {
		req := tt.req
		if _, err := h.services.CreateService(ctx, reception, &req); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err=%v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestServiceLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)

	if _, err := h.services.CompleteService(ctx, doctor, svc.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("complete before start err=%v, want invalid transition", err)
	}

	started, err := h.services.StartService(ctx, doctor, svc.ID)
	if err != nil {
		t.Fatalf("StartService: %v", err)
	}
	if started.Status != string(entity.ServiceStatusInProgress) || started.Version != 2 {
		t.Fatalf("started=%+v", started)
	}
	if _, err := h.services.StartService(ctx, doctor, svc.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("second start err=%v, want invalid transition", err)
	}

	if _, err := h.services.AddLineItem(ctx, doctor, svc.ID, &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 2}); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	override := dec("10.00")
	detail, err := h.services.AddLineItem(ctx, doctor, svc.ID, &dto.AddLineItemRequest{
		ProductID: h.product.ID,
		Quantity:  3,
		UnitPrice: &override,
		Discount:  dec("5"),
	})
	if err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if len(detail.Items) != 2 || !detail.Items[1].Subtotal.Equal(dec("25")) {
		t.Fatalf("items=%+v", detail.Items)
	}
	if !detail.TotalAmount.Equal(dec("204.80")) {
		t.Fatalf("running total=%s, want 204.80", detail.TotalAmount)
	}

	completed, err := h.services.CompleteService(ctx, doctor, svc.ID)
	if err != nil {
		t.Fatalf("CompleteService: %v", err)
	}
	if completed.Status != string(entity.ServiceStatusCompleted) || completed.CompletedAt == nil {
		t.Fatalf("completed=%+v", completed)
	}
	if completed.CompletedBy == nil || *completed.CompletedBy != doctor.UserID {
		t.Fatalf("completed by %v, want %s", completed.CompletedBy, doctor.UserID)
	}
	if !completed.TotalAmount.Equal(dec("204.80")) {
		t.Fatalf("total=%s, want 204.80", completed.TotalAmount)
	}

	for name, call := range map[string]func() error{
		"cancel": func() error { _, err := h.services.CancelService(ctx, reception, svc.ID); return err },
		"start":  func() error { _, err := h.services.StartService(ctx, doctor, svc.ID); return err },
		"item": func() error {
			_, err := h.services.AddLineItem(ctx, doctor, svc.ID, &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 1})
			return err
		},
	} {
		if err := call(); !errors.Is(err, errs.ErrInvalidTransition) {
			t.Fatalf("%s on completed service err=%v, want invalid transition", name, err)
		}
	}

	var actions []string
	for _, log := range h.history(t, entity.EntityService, svc.ID) {
		actions = append(actions, log.Action)
	}
	want := []string{
		entity.AuditActionServiceCreate,
		entity.AuditActionServiceStart,
		entity.AuditActionServiceItemAdd,
		entity.AuditActionServiceItemAdd,
		entity.AuditActionServiceComplete,
	}
	if len(actions) != len(want) {
		t.Fatalf("history=%v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("history=%v, want %v", actions, want)
		}
	}
}

func TestCompleteRejectsCancelledPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)
	if _, err := h.services.StartService(ctx, doctor, svc.ID); err != nil {
		t.Fatalf("StartService: %v", err)
	}
	if _, err := h.services.UpdatePaymentStatus(ctx, reception, svc.ID, &dto.UpdatePaymentStatusRequest{PaymentStatus: "cancelled"}); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}

	_, err := h.services.CompleteService(ctx, doctor, svc.ID)
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("err=%v, want invalid transition", err)
	}
	current, _ := h.store.Services().FindByID(ctx, svc.ID)
	if current.Status != entity.ServiceStatusInProgress {
		t.Fatalf("status=%s, rejected completion must not change state", current.Status)
	}
}

func TestCancelRejectsCompletedPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)
	if _, err := h.services.UpdatePaymentStatus(ctx, reception, svc.ID, &dto.UpdatePaymentStatusRequest{PaymentStatus: "completed"}); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	before := h.events.count()

	_, err := h.services.CancelService(ctx, reception, svc.ID)
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("err=%v, want invalid transition", err)
	}
	if h.events.count() != before {
		t.Fatal("a rejected transition must not publish events")
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)
	if _, err := h.services.AddLineItem(ctx, reception, svc.ID, &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 1}); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}

	steps := []struct {
		status  string
		paid    string
		wantErr error
	}{
		{"partial", "40", nil},
		{"completed", "50", ErrUnderpaid},
		{"completed", "89.90", nil},
		{"pending", "0", errs.ErrInvalidTransition},
		{"refunded", "0", errs.ErrInvalidTransition},
		{"partial", "40", nil},
	}
	for i, step := range steps {
		_, err := h.services.UpdatePaymentStatus(ctx, reception, svc.ID, &dto.UpdatePaymentStatusRequest{
			PaymentStatus: step.status,
			AmountPaid:    dec(step.paid),
		})
		if step.wantErr == nil && err != nil {
			t.Fatalf("step %d (%s): %v", i, step.status, err)
		}
		if step.wantErr != nil && !errors.Is(err, step.wantErr) {
			t.Fatalf("step %d (%s): err=%v, want %v", i, step.status, err, step.wantErr)
		}
	}

	status, err := h.services.GetFinancialStatus(ctx, svc.ID)
	if err != nil {
		t.Fatalf("GetFinancialStatus: %v", err)
	}
	if status.PaymentStatus != "partial" || status.FinanciallyClosed || !status.TotalAmount.Equal(dec("89.90")) {
		t.Fatalf("financial status=%+v", status)
	}
}

func TestPaymentCorrectionAfterCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)
	if _, err := h.services.StartService(ctx, doctor, svc.ID); err != nil {
		t.Fatalf("StartService: %v", err)
	}
	if _, err := h.services.CompleteService(ctx, doctor, svc.ID); err != nil {
		t.Fatalf("CompleteService: %v", err)
	}

	updated, err := h.services.UpdatePaymentStatus(ctx, reception, svc.ID, &dto.UpdatePaymentStatusRequest{PaymentStatus: "completed"})
	if err != nil {
		t.Fatalf("UpdatePaymentStatus on completed service: %v", err)
	}
	if updated.Status != string(entity.ServiceStatusCompleted) || updated.PaymentStatus != "completed" {
		t.Fatalf("updated=%+v", updated)
	}

	status, _ := h.services.GetFinancialStatus(ctx, svc.ID)
	if !status.FinanciallyClosed {
		t.Fatal("completed payment should close the service financially")
	}
}

func TestAddLineItemGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)

	if _, err := h.services.AddLineItem(ctx, reception, svc.ID, &dto.AddLineItemRequest{ProductID: uuid.New(), Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("unknown product err=%v", err)
	}
	if _, err := h.services.AddLineItem(ctx, reception, uuid.New(), &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 1}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown service err=%v", err)
	}

	if _, err := h.services.UpdatePaymentStatus(ctx, reception, svc.ID, &dto.UpdatePaymentStatusRequest{PaymentStatus: "completed"}); err != nil {
		t.Fatalf("UpdatePaymentStatus: %v", err)
	}
	_, err := h.services.AddLineItem(ctx, reception, svc.ID, &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 1})
	if !errors.Is(err, ErrPaymentClosed) || !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("paid service err=%v, want payment closed", err)
	}
}

func TestServiceNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := uuid.New()

	calls := map[string]func() error{
		"get":       func() error { _, err := h.services.GetService(ctx, id); return err },
		"start":     func() error { _, err := h.services.StartService(ctx, doctor, id); return err },
		"complete":  func() error { _, err := h.services.CompleteService(ctx, doctor, id); return err },
		"cancel":    func() error { _, err := h.services.CancelService(ctx, reception, id); return err },
		"financial": func() error { _, err := h.services.GetFinancialStatus(ctx, id); return err },
		"payment": func() error {
			_, err := h.services.UpdatePaymentStatus(ctx, reception, id, &dto.UpdatePaymentStatusRequest{PaymentStatus: "partial"})
			return err
		},
	}
	for name, call := range calls {
		err := call()
		if !errors.Is(err, errs.ErrNotFound) {
			t.Fatalf("%s err=%v, want not found", name, err)
		}
		var e *errs.Error
		if !errors.As(err, &e) || e.EntityID != id.String() {
			t.Fatalf("%s error should name the missing service: %v", name, err)
		}
	}
}

func TestGetServiceDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := h.createService(t)
	if _, err := h.services.AddLineItem(ctx, reception, svc.ID, &dto.AddLineItemRequest{ProductID: h.product.ID, Quantity: 1}); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}

	detail, err := h.services.GetService(ctx, svc.ID)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if detail.ClientName != h.client.FullName || len(detail.Items) != 1 || detail.Items[0].ProductName != h.product.Name {
		t.Fatalf("detail=%+v", detail)
	}
}
