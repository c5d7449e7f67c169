package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

func seedBareOrder(t *testing.T, repo domain.OrderRepository, createdAt time.Time) domain.Order {
	t.Helper()

	order := domain.Order{
		ID:        uuid.NewString(),
		OrderDate: createdAt,
		State:     domain.OrderStateNew,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestOrderRepository_CreateGetSaveLines(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := seedBareOrder(t, repo, now)

	got, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.State != domain.OrderStateNew || len(got.Lines) != 0 {
		t.Fatalf("unexpected bare order: state=%s lines=%d", got.State, len(got.Lines))
	}

	lines := []domain.OrderLine{
		{ID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: 2, Price: 10.50, CreatedAt: now},
		{ID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: 1, Price: 99.00, CreatedAt: now.Add(time.Millisecond)},
	}
	if err := repo.SaveLines(order.ID, lines); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	got, err = repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get order with lines: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}
	if got.Lines[0].Quantity != 2 || got.Lines[0].Price != 10.50 {
		t.Fatalf("unexpected first line: %+v", got.Lines[0])
	}

	if err := repo.SaveLines(uuid.NewString(), lines); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_SaveOptimisticLocking(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	order := seedBareOrder(t, repo, time.Now().UTC().Truncate(time.Microsecond))

	first, _ := repo.Get(order.ID)
	second, _ := repo.Get(order.ID)

	first.State = domain.OrderStateProcessing
	first.UpdatedAt = time.Now().UTC()
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Вторая копия осталась со старой версией.
	second.State = domain.OrderStateCancelled
	second.UpdatedAt = time.Now().UTC()
	if err := repo.Save(second); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict, got %v", err)
	}

	got, _ := repo.Get(order.ID)
	if got.State != domain.OrderStateProcessing {
		t.Fatalf("expected processing, got %s", got.State)
	}
	if got.Version != order.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", order.Version+1, got.Version)
	}
}

func TestOrderRepository_DeleteCascadesLines(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := seedBareOrder(t, repo, now)
	if err := repo.SaveLines(order.ID, []domain.OrderLine{
		{ID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: 1, Price: 5, CreatedAt: now},
	}); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	if err := repo.Delete(order.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}

	lines, err := repo.ListLines()
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected cascade delete of lines, got %d", len(lines))
	}

	if err := repo.Delete(order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListStaleEmpty(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Truncate(time.Microsecond)
	old := now.Add(-time.Hour)

	stale := seedBareOrder(t, repo, old)
	seedBareOrder(t, repo, now) // свежий — не сирота

	withLines := seedBareOrder(t, repo, old)
	if err := repo.SaveLines(withLines.ID, []domain.OrderLine{
		{ID: uuid.NewString(), ProductID: uuid.NewString(), Quantity: 1, Price: 5, CreatedAt: now},
	}); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	orphans, err := repo.ListStaleEmpty(now.Add(-30*time.Minute), 10)
	if err != nil {
		t.Fatalf("list stale empty: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != stale.ID {
		t.Fatalf("expected only the stale empty order, got %d", len(orphans))
	}
}
