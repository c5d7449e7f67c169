package domain

import "time"

// OrderState описывает жизненный цикл заказа.
type OrderState string

const (
	// OrderStateNew — заказ создан, позиции ещё резервируются.
	OrderStateNew OrderState = "new"
	// OrderStateProcessing — заказ подтверждён и готовится к доставке.
	OrderStateProcessing OrderState = "processing"
	// OrderStateDelivered — заказ доставлен (терминальный статус).
	OrderStateDelivered OrderState = "delivered"
	// OrderStateCancelled — заказ отменён (терминальный статус).
	OrderStateCancelled OrderState = "cancelled"
)

// OrderLine — одна позиция заказа. Ссылается на товар только по
// идентификатору; цена снимается в момент резервирования и дальше
// не перечитывается, поэтому заказ не зависит от будущих изменений цены.
type OrderLine struct {
	ID        string
	ProductID string
	Quantity  int
	Price     float64
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID        string
	OrderDate time.Time
	State     OrderState
	Lines     []OrderLine
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeForCreate выставляет дефолты перед первым сохранением:
// дата заказа — текущая, статус — new, если явно не заданы.
func (o *Order) NormalizeForCreate(now time.Time) {
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	if o.State == "" {
		o.State = OrderStateNew
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
}

// Confirm переводит заказ new → processing.
// При нарушении предусловия возвращает ErrInvalidTransition, не меняя статус.
func (o *Order) Confirm() error {
	if o.State != OrderStateNew {
		return ErrInvalidTransition
	}
	o.State = OrderStateProcessing
	return nil
}

// Deliver переводит заказ processing → delivered.
func (o *Order) Deliver() error {
	if o.State != OrderStateProcessing {
		return ErrInvalidTransition
	}
	o.State = OrderStateDelivered
	return nil
}

// Cancel переводит заказ в cancelled из любого нетерминального статуса.
func (o *Order) Cancel() error {
	if o.State == OrderStateDelivered || o.State == OrderStateCancelled {
		return ErrInvalidTransition
	}
	o.State = OrderStateCancelled
	return nil
}

// ValidateLines проверяет инварианты позиций и возвращает список замечаний.
func (o *Order) ValidateLines() []error {
	var errs []error
	for _, line := range o.Lines {
		if line.ProductID == "" {
			errs = append(errs, ErrLineProductRequired)
		}
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.Price < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
	}
	return errs
}
