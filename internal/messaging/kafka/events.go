package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События саги резервирования
	EventTypeReservationStarted     EventType = "reservation.started"
	EventTypeReservationCompleted   EventType = "reservation.completed"
	EventTypeReservationFailed      EventType = "reservation.failed"
	EventTypeReservationCompensated EventType = "reservation.compensated"

	// События заказа
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderDelivered EventType = "order.delivered"
	EventTypeOrderCancelled EventType = "order.cancelled"
	EventTypeOrderDeleted   EventType = "order.deleted"

	// События склада
	EventTypeStockDecremented EventType = "stock.decremented"
	EventTypeStockIncremented EventType = "stock.incremented"
)

// Topics для Kafka
const (
	TopicOrderEvents = "ecom.order.events"
	TopicStockEvents = "ecom.stock.events"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	State     string                 `json:"state,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StockEvent представляет изменение количества товара.
type StockEvent struct {
	EventType   EventType `json:"event_type"`
	ProductID   string    `json:"product_id"`
	Amount      int       `json:"amount"`
	NewQuantity int       `json:"new_quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewOrderEvent создаёт событие заказа с текущим timestamp.
func NewOrderEvent(eventType EventType, orderID, state string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		State:     state,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewStockEvent создаёт событие склада с текущим timestamp.
func NewStockEvent(eventType EventType, productID string, amount, newQuantity int) *StockEvent {
	return &StockEvent{
		EventType:   eventType,
		ProductID:   productID,
		Amount:      amount,
		NewQuantity: newQuantity,
		Timestamp:   time.Now(),
	}
}
