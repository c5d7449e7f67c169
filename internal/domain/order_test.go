package domain

import (
	"errors"
	"testing"
	"time"
)

func TestOrder_NormalizeForCreate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	order := Order{ID: "order-1"}
	order.NormalizeForCreate(now)

	if order.State != OrderStateNew {
		t.Fatalf("expected default state new, got %s", order.State)
	}
	if !order.OrderDate.Equal(now) {
		t.Fatalf("expected order date defaulted to %v, got %v", now, order.OrderDate)
	}

	// Явно заданные значения не перетираются.
	explicit := Order{
		ID:        "order-2",
		State:     OrderStateProcessing,
		OrderDate: now.AddDate(0, 0, -1),
	}
	explicit.NormalizeForCreate(now)

	if explicit.State != OrderStateProcessing {
		t.Fatalf("expected explicit state preserved, got %s", explicit.State)
	}
	if explicit.OrderDate.Equal(now) {
		t.Fatal("expected explicit order date preserved")
	}
}

func TestOrder_Transitions(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderState
		apply   func(*Order) error
		want    OrderState
		wantErr bool
	}{
		{name: "confirm new", from: OrderStateNew, apply: (*Order).Confirm, want: OrderStateProcessing},
		{name: "confirm processing rejected", from: OrderStateProcessing, apply: (*Order).Confirm, want: OrderStateProcessing, wantErr: true},
		{name: "deliver processing", from: OrderStateProcessing, apply: (*Order).Deliver, want: OrderStateDelivered},
		{name: "deliver new rejected", from: OrderStateNew, apply: (*Order).Deliver, want: OrderStateNew, wantErr: true},
		{name: "deliver cancelled rejected", from: OrderStateCancelled, apply: (*Order).Deliver, want: OrderStateCancelled, wantErr: true},
		{name: "cancel new", from: OrderStateNew, apply: (*Order).Cancel, want: OrderStateCancelled},
		{name: "cancel processing", from: OrderStateProcessing, apply: (*Order).Cancel, want: OrderStateCancelled},
		{name: "cancel delivered rejected", from: OrderStateDelivered, apply: (*Order).Cancel, want: OrderStateDelivered, wantErr: true},
		{name: "cancel cancelled rejected", from: OrderStateCancelled, apply: (*Order).Cancel, want: OrderStateCancelled, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := Order{ID: "order-1", State: tc.from}

			err := tc.apply(&order)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if order.State != tc.want {
				t.Fatalf("expected state %s, got %s", tc.want, order.State)
			}
		})
	}
}

func TestOrder_ValidateLines(t *testing.T) {
	order := Order{
		ID: "order-1",
		Lines: []OrderLine{
			{ID: "line-1", ProductID: "", Quantity: 0, Price: -1},
		},
	}

	errs := order.ValidateLines()
	if len(errs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d: %v", len(errs), errs)
	}
}

func TestReservationError_Unwrap(t *testing.T) {
	err := &ReservationError{OrderID: "order-1", ProductID: "product-1", Cause: ErrInsufficientStock}

	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected errors.Is to see the cause through ReservationError")
	}

	var resErr *ReservationError
	if !errors.As(error(err), &resErr) {
		t.Fatal("expected errors.As to extract ReservationError")
	}
	if resErr.ProductID != "product-1" {
		t.Fatalf("expected product-1, got %s", resErr.ProductID)
	}
}

func TestIsBusinessError(t *testing.T) {
	for _, err := range []error{ErrProductNotFound, ErrInvalidAmount, ErrInsufficientStock, ErrEmptyCatalog} {
		if !IsBusinessError(err) {
			t.Fatalf("expected %v to be a business error", err)
		}
	}
	if IsBusinessError(ErrUnavailable) {
		t.Fatal("unavailability must not be a business error")
	}
	if IsBusinessError(errors.New("connection refused")) {
		t.Fatal("transport errors must not be business errors")
	}
}
