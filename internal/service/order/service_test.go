package order

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, domain.OrderRepository) {
	t.Helper()

	repo := memory.NewOrderRepository()
	svc := NewService(repo, log.New().WithField("test", "order"))
	return svc, repo
}

func createOrder(t *testing.T, repo domain.OrderRepository, state domain.OrderState) domain.Order {
	t.Helper()

	order := domain.Order{
		ID:    uuid.NewString(),
		State: state,
	}
	order.NormalizeForCreate(time.Now().UTC())
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestService_Lifecycle(t *testing.T) {
	svc, repo := newTestService(t)
	order := createOrder(t, repo, domain.OrderStateNew)

	confirmed, err := svc.Confirm(order.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.State != domain.OrderStateProcessing {
		t.Fatalf("expected processing, got %s", confirmed.State)
	}

	delivered, err := svc.Deliver(order.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.State != domain.OrderStateDelivered {
		t.Fatalf("expected delivered, got %s", delivered.State)
	}
}

func TestService_InvalidTransitions(t *testing.T) {
	svc, repo := newTestService(t)

	cases := []struct {
		name  string
		state domain.OrderState
		op    func(string) (domain.Order, error)
	}{
		{"confirm processing", domain.OrderStateProcessing, svc.Confirm},
		{"confirm delivered", domain.OrderStateDelivered, svc.Confirm},
		{"deliver new", domain.OrderStateNew, svc.Deliver},
		{"deliver cancelled", domain.OrderStateCancelled, svc.Deliver},
		{"cancel delivered", domain.OrderStateDelivered, svc.Cancel},
		{"cancel cancelled", domain.OrderStateCancelled, svc.Cancel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := createOrder(t, repo, tc.state)

			if _, err := tc.op(order.ID); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}

			// Нарушенный переход не мутирует заказ.
			got, err := repo.Get(order.ID)
			if err != nil {
				t.Fatalf("get order: %v", err)
			}
			if got.State != tc.state {
				t.Fatalf("state must be untouched: expected %s, got %s", tc.state, got.State)
			}
		})
	}
}

func TestService_CancelFromNonTerminalStates(t *testing.T) {
	svc, repo := newTestService(t)

	for _, state := range []domain.OrderState{domain.OrderStateNew, domain.OrderStateProcessing} {
		order := createOrder(t, repo, state)

		cancelled, err := svc.Cancel(order.ID)
		if err != nil {
			t.Fatalf("cancel from %s: %v", state, err)
		}
		if cancelled.State != domain.OrderStateCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.State)
		}
	}
}

func TestService_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.Confirm("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := svc.Delete("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestService_DeleteCascadesLines(t *testing.T) {
	svc, repo := newTestService(t)
	order := createOrder(t, repo, domain.OrderStateNew)

	lines := []domain.OrderLine{
		{ID: uuid.NewString(), ProductID: "p-1", Quantity: 2, Price: 10},
		{ID: uuid.NewString(), ProductID: "p-2", Quantity: 1, Price: 5},
	}
	if err := repo.SaveLines(order.ID, lines); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	if err := svc.Delete(order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, err := svc.ListLines()
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected cascade delete of lines, got %d", len(remaining))
	}
}

// conflictingRepo подсовывает конфликт версий на первых N вызовах Save.
type conflictingRepo struct {
	domain.OrderRepository
	conflicts int
	saves     int
}

func (r *conflictingRepo) Save(order domain.Order) error {
	r.saves++
	if r.saves <= r.conflicts {
		return domain.ErrOrderVersionConflict
	}
	return r.OrderRepository.Save(order)
}

func TestService_VersionConflictRetries(t *testing.T) {
	inner := memory.NewOrderRepository()
	repo := &conflictingRepo{OrderRepository: inner, conflicts: 2}
	svc := NewService(repo, log.New().WithField("test", "order"))
	order := createOrder(t, inner, domain.OrderStateNew)

	confirmed, err := svc.Confirm(order.ID)
	if err != nil {
		t.Fatalf("confirm must retry on version conflict: %v", err)
	}
	if confirmed.State != domain.OrderStateProcessing {
		t.Fatalf("expected processing, got %s", confirmed.State)
	}
	if repo.saves != 3 {
		t.Fatalf("expected 3 save attempts, got %d", repo.saves)
	}

	// Исчерпанные попытки возвращают конфликт вызывающему.
	exhausted := &conflictingRepo{OrderRepository: inner, conflicts: 10}
	svc = NewService(exhausted, log.New().WithField("test", "order"))
	other := createOrder(t, inner, domain.OrderStateNew)
	if _, err := svc.Confirm(other.ID); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict after exhausted retries, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, repo := newTestService(t)
	createOrder(t, repo, domain.OrderStateNew)
	createOrder(t, repo, domain.OrderStateProcessing)

	orders, err := svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
}
