package postgres

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

func seedProduct(t *testing.T, repo domain.ProductRepository, quantity int) domain.Product {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        "graphics card",
		Description: "8GB VRAM",
		Price:       499.99,
		Quantity:    quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestProductRepository_CRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	product := seedProduct(t, repo, 5)

	got, err := repo.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Name != product.Name || got.Quantity != 5 {
		t.Fatalf("unexpected product: %+v", got)
	}

	if err := repo.Create(product); !errors.Is(err, domain.ErrProductExists) {
		t.Fatalf("expected ErrProductExists, got %v", err)
	}

	got.Name = "graphics card v2"
	if err := repo.Save(got); err != nil {
		t.Fatalf("save product: %v", err)
	}
	updated, _ := repo.Get(product.ID)
	if updated.Name != "graphics card v2" {
		t.Fatalf("expected updated name, got %s", updated.Name)
	}

	products, err := repo.List()
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}

	if err := repo.Delete(product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := repo.Get(product.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound after delete, got %v", err)
	}
}

func TestProductRepository_AdjustQuantity(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	product := seedProduct(t, repo, 5)

	qty, err := repo.AdjustQuantity(product.ID, -3)
	if err != nil {
		t.Fatalf("adjust -3: %v", err)
	}
	if qty != 2 {
		t.Fatalf("expected quantity 2, got %d", qty)
	}

	// Перерасход отклоняется без мутации.
	if _, err := repo.AdjustQuantity(product.ID, -3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	got, _ := repo.Get(product.ID)
	if got.Quantity != 2 {
		t.Fatalf("expected quantity untouched at 2, got %d", got.Quantity)
	}

	if qty, err := repo.AdjustQuantity(product.ID, 4); err != nil || qty != 6 {
		t.Fatalf("adjust +4: qty=%d err=%v", qty, err)
	}

	if _, err := repo.AdjustQuantity(uuid.NewString(), -1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_AdjustQuantity_ConcurrentNeverNegative(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	product := seedProduct(t, repo, 50)

	// 100 конкурентных decrement по 1 при стоке 50: ровно 50 отклонений.
	const workers = 100
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustQuantity(product.ID, -1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 50 || insufficient != 50 {
		t.Fatalf("expected 50 ok / 50 rejected, got ok=%d rejected=%d", ok, insufficient)
	}

	got, _ := repo.Get(product.ID)
	if got.Quantity != 0 {
		t.Fatalf("expected final quantity 0, got %d", got.Quantity)
	}
}
