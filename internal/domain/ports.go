package domain

import (
	"context"
	"time"
)

// ProductRepository хранит товары каталога.
type ProductRepository interface {
	Create(product Product) error
	Get(id string) (Product, error)
	List() ([]Product, error)
	Save(product Product) error
	Delete(id string) error
	// AdjustQuantity атомарно меняет количество на delta и возвращает новое
	// значение. Реализация обязана сериализовать конкурентные вызовы по
	// одному товару и не допускать quantity < 0 (ErrInsufficientStock).
	AdjustQuantity(id string, delta int) (int, error)
}

// OrderRepository хранит заказы и их позиции.
type OrderRepository interface {
	Create(order Order) error
	Get(id string) (Order, error)
	List() ([]Order, error)
	// Save перезаписывает заказ с optimistic locking по Version.
	Save(order Order) error
	// SaveLines сохраняет позиции заказа одним действием.
	SaveLines(orderID string, lines []OrderLine) error
	// Delete удаляет заказ вместе с позициями (cascade).
	Delete(id string) error
	ListLines() ([]OrderLine, error)
	// ListStaleEmpty возвращает заказы в статусе new без позиций,
	// созданные раньше before. Нужен воркеру очистки «сирот».
	ListStaleEmpty(before time.Time, limit int) ([]Order, error)
}

// InventoryGateway — операции склада, доступные другим сервисам.
// Транспортные ошибки отличимы от бизнес-таксономии (см. IsBusinessError).
type InventoryGateway interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	DecrementQuantity(ctx context.Context, id string, amount int) (int, error)
	IncrementQuantity(ctx context.Context, id string, amount int) (int, error)
}

// LineRequest — запрошенная позиция при создании заказа.
type LineRequest struct {
	ProductID string
	Quantity  int
	Price     float64
}
