package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidAmount — неположительное количество в increment/decrement.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientStock — запрошено больше, чем доступно на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnavailable — склад недоступен: открыт breaker или транспортная ошибка.
	// Отличается от бизнес-ошибок: «сервис лежит» не равно «нет стока».
	ErrUnavailable = errors.New("inventory unavailable")
	// ErrInvalidTransition — переход заказа нарушает граф жизненного цикла.
	ErrInvalidTransition = errors.New("invalid order state transition")
	// ErrEmptyCatalog — каталог пуст; источник трактует это как ошибку,
	// а не как корректный пустой список.
	ErrEmptyCatalog = errors.New("product catalog is empty")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrProductExists — попытка создать товар с занятым идентификатором.
	ErrProductExists = errors.New("product already exists")

	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной цены товара.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// Ошибка отрицательного количества товара.
	ErrProductQtyInvalid = errors.New("product quantity must be non-negative")

	// Ошибка отсутствующего идентификатора товара в позиции заказа.
	ErrLineProductRequired = errors.New("line product_id is required")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
)

// ReservationError описывает провал саги резервирования: какая позиция
// сорвала заказ и по какой причине.
type ReservationError struct {
	OrderID   string
	ProductID string
	Cause     error
}

// Error реализует error.
func (e *ReservationError) Error() string {
	return fmt.Sprintf("reservation failed for product %q: %v", e.ProductID, e.Cause)
}

// Unwrap отдаёт первопричину, чтобы errors.Is/As работали по таксономии.
func (e *ReservationError) Unwrap() error {
	return e.Cause
}

// IsBusinessError сообщает, относится ли ошибка к бизнес-таксономии склада.
// Такие ошибки не считаются сбоями для circuit breaker.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrEmptyCatalog)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
