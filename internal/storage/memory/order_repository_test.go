package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

func seedEmptyOrder(t *testing.T, repo domain.OrderRepository, id string, createdAt time.Time) domain.Order {
	t.Helper()

	order := domain.Order{
		ID:        id,
		OrderDate: createdAt,
		State:     domain.OrderStateNew,
		Version:   0,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if err := repo.Create(order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	return order
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository()
	seedEmptyOrder(t, repo, "order-1", time.Now().UTC())

	got, err := repo.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.State != domain.OrderStateNew {
		t.Fatalf("expected state new, got %s", got.State)
	}

	if err := repo.Create(domain.Order{ID: "order-1"}); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_Save_VersionConflict(t *testing.T) {
	repo := NewOrderRepository()
	order := seedEmptyOrder(t, repo, "order-1", time.Now().UTC())

	order.State = domain.OrderStateProcessing
	if err := repo.Save(order); err != nil {
		t.Fatalf("save order: %v", err)
	}

	// Повторное сохранение с устаревшей версией отклоняется.
	if err := repo.Save(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, _ := repo.Get("order-1")
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
	if got.State != domain.OrderStateProcessing {
		t.Fatalf("expected state processing, got %s", got.State)
	}
}

func TestOrderRepository_SaveLines(t *testing.T) {
	repo := NewOrderRepository()
	seedEmptyOrder(t, repo, "order-1", time.Now().UTC())

	lines := []domain.OrderLine{
		{ID: "line-1", ProductID: "product-1", Quantity: 3, Price: 10.5},
		{ID: "line-2", ProductID: "product-2", Quantity: 1, Price: 99.0},
	}
	if err := repo.SaveLines("order-1", lines); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	got, _ := repo.Get("order-1")
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}

	// Мутация возвращённого среза не трогает хранилище.
	got.Lines[0].Quantity = 999
	again, _ := repo.Get("order-1")
	if again.Lines[0].Quantity != 3 {
		t.Fatal("repository must return copies of lines")
	}

	if err := repo.SaveLines("missing", lines); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	allLines, err := repo.ListLines()
	if err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(allLines) != 2 {
		t.Fatalf("expected 2 lines overall, got %d", len(allLines))
	}
}

func TestOrderRepository_Delete_Cascades(t *testing.T) {
	repo := NewOrderRepository()
	seedEmptyOrder(t, repo, "order-1", time.Now().UTC())
	if err := repo.SaveLines("order-1", []domain.OrderLine{{ID: "line-1", ProductID: "p", Quantity: 1}}); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	if err := repo.Delete("order-1"); err != nil {
		t.Fatalf("delete order: %v", err)
	}

	lines, _ := repo.ListLines()
	if len(lines) != 0 {
		t.Fatalf("expected lines removed with order, got %d", len(lines))
	}

	if err := repo.Delete("order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListStaleEmpty(t *testing.T) {
	repo := NewOrderRepository()
	now := time.Now().UTC()

	seedEmptyOrder(t, repo, "order-old", now.Add(-time.Hour))
	seedEmptyOrder(t, repo, "order-fresh", now)

	withLines := seedEmptyOrder(t, repo, "order-lines", now.Add(-2*time.Hour))
	if err := repo.SaveLines(withLines.ID, []domain.OrderLine{{ID: "line-1", ProductID: "p", Quantity: 1}}); err != nil {
		t.Fatalf("save lines: %v", err)
	}

	stale, err := repo.ListStaleEmpty(now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale order, got %d", len(stale))
	}
	if stale[0].ID != "order-old" {
		t.Fatalf("expected order-old, got %s", stale[0].ID)
	}
}
