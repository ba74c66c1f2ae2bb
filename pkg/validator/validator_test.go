package validator

import (
	"testing"

	"go-clinic-queue/internal/delivery/dto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestDecimalFieldsValidateByValue(t *testing.T) {
	v := NewValidator()
	negative := decimal.RequireFromString("-0.01")

	cases := []struct {
		name      string
		req       dto.AddLineItemRequest
		wantField string
	}{
		{"valid", dto.AddLineItemRequest{ProductID: uuid.New(), Quantity: 1, Discount: decimal.RequireFromString("2.50")}, ""},
		{"negative discount", dto.AddLineItemRequest{ProductID: uuid.New(), Quantity: 1, Discount: negative}, "Discount"},
		{"negative unit price", dto.AddLineItemRequest{ProductID: uuid.New(), Quantity: 1, UnitPrice: &negative}, "UnitPrice"},
		{"zero quantity", dto.AddLineItemRequest{ProductID: uuid.New()}, "Quantity"},
	}
	for _, tt := range cases {
		req := tt.req
		err := v.Validate(&req)
		if tt.wantField == "" {
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s: expected a validation error", tt.name)
		}
		if _, ok := v.FormatValidationErrors(err)[tt.wantField]; !ok {
			t.Fatalf("%s: errors=%v, want %s", tt.name, v.FormatValidationErrors(err), tt.wantField)
		}
	}
}

func TestFormatValidationErrors(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&dto.UpdatePaymentStatusRequest{PaymentStatus: "refunded"})
	got := v.FormatValidationErrors(err)
	if got["PaymentStatus"] != "PaymentStatus must be one of: pending partial completed cancelled" {
		t.Fatalf("errors=%v", got)
	}

	err = v.Validate(&dto.CreateServiceRequest{ClientID: uuid.New(), ServiceDate: "2026-3-9", ServiceTime: "09:30", ServiceType: "consultation"})
	if got := v.FormatValidationErrors(err); got["ServiceDate"] != "ServiceDate must match the format 2006-01-02" {
		t.Fatalf("errors=%v", got)
	}
}
