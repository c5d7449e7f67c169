package inventory

import (
	"context"
	"sync"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

// MockGateway — конфигурируемая заглушка InventoryGateway для тестов.
// Количества хранятся в Quantities; охрана mutex нужна из-за конкурентных
// вызовов из саги резервирования.
type MockGateway struct {
	GetErr       error
	ListErr      error
	DecrementErr error
	IncrementErr error

	// DecrementErrs задаёт ошибку для конкретного товара,
	// перекрывая DecrementErr.
	DecrementErrs map[string]error

	mu         sync.Mutex
	Products   []domain.Product
	Quantities map[string]int

	GetCalls       int
	ListCalls      int
	DecrementCalls int
	IncrementCalls int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{Quantities: make(map[string]int)}
}

// SetQuantity задаёт количество товара для последующих вызовов.
func (m *MockGateway) SetQuantity(id string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quantities[id] = quantity
}

// Quantity возвращает текущее количество товара в mock.
func (m *MockGateway) Quantity(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Quantities[id]
}

// GetProduct возвращает заранее настроенный товар и считает вызовы.
func (m *MockGateway) GetProduct(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return domain.Product{}, m.GetErr
	}
	for _, p := range m.Products {
		if p.ID == id {
			p.Quantity = m.Quantities[id]
			return p, nil
		}
	}
	return domain.Product{ID: id, Quantity: m.Quantities[id]}, nil
}

// ListProducts возвращает заранее настроенный каталог и считает вызовы.
func (m *MockGateway) ListProducts(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Products, nil
}

// DecrementQuantity уменьшает количество в mock, отклоняя перерасход
// как настоящая складская книга.
func (m *MockGateway) DecrementQuantity(_ context.Context, id string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecrementCalls++
	if err, ok := m.DecrementErrs[id]; ok && err != nil {
		return 0, err
	}
	if m.DecrementErr != nil {
		return 0, m.DecrementErr
	}
	next := m.Quantities[id] - amount
	if next < 0 {
		return 0, domain.ErrInsufficientStock
	}
	m.Quantities[id] = next
	return next, nil
}

// IncrementQuantity увеличивает количество в mock и считает вызовы.
func (m *MockGateway) IncrementQuantity(_ context.Context, id string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls++
	if m.IncrementErr != nil {
		return 0, m.IncrementErr
	}
	m.Quantities[id] += amount
	return m.Quantities[id], nil
}

var _ domain.InventoryGateway = (*MockGateway)(nil)
