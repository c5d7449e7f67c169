package inventory

import (
	"context"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/ledger"
)

// LocalGateway адаптирует складскую книгу к интерфейсу gateway для
// развёртывания обоих сервисов в одном процессе. Контекст не используется:
// вызовы не покидают процесс.
type LocalGateway struct {
	ledger *ledger.Service
}

// NewLocalGateway создаёт in-process gateway поверх складской книги.
func NewLocalGateway(l *ledger.Service) *LocalGateway {
	return &LocalGateway{ledger: l}
}

func (g *LocalGateway) GetProduct(_ context.Context, id string) (domain.Product, error) {
	return g.ledger.Get(id)
}

func (g *LocalGateway) ListProducts(_ context.Context) ([]domain.Product, error) {
	return g.ledger.List()
}

func (g *LocalGateway) DecrementQuantity(_ context.Context, id string, amount int) (int, error) {
	return g.ledger.Decrement(id, amount)
}

func (g *LocalGateway) IncrementQuantity(_ context.Context, id string, amount int) (int, error) {
	return g.ledger.Increment(id, amount)
}

var _ domain.InventoryGateway = (*LocalGateway)(nil)
