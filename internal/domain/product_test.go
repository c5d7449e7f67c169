package domain

import "testing"

func TestProduct_ValidateInvariants(t *testing.T) {
	ok := Product{ID: "p-1", Name: "keyboard", Price: 49.90, Quantity: 10}
	if errs := ok.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	bad := Product{ID: "p-2", Price: -1, Quantity: -5}
	errs := bad.ValidateInvariants()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestProductPatch_Apply(t *testing.T) {
	product := Product{
		ID:          "p-1",
		Name:        "keyboard",
		Description: "mechanical",
		Price:       49.90,
		Quantity:    10,
	}

	// Пустые и некорректные поля не перетирают существующие значения.
	ProductPatch{Name: "", Description: "", Price: 0}.Apply(&product)
	if product.Name != "keyboard" || product.Description != "mechanical" || product.Price != 49.90 {
		t.Fatalf("blank patch must keep original fields, got %+v", product)
	}

	ProductPatch{Price: -10, Quantity: -1, QuantitySet: true}.Apply(&product)
	if product.Price != 49.90 || product.Quantity != 10 {
		t.Fatalf("negative patch must keep original fields, got %+v", product)
	}

	// Непустые поля обновляются.
	ProductPatch{Name: "keyboard v2", Price: 59.90, Quantity: 0, QuantitySet: true}.Apply(&product)
	if product.Name != "keyboard v2" {
		t.Fatalf("expected updated name, got %s", product.Name)
	}
	if product.Price != 59.90 {
		t.Fatalf("expected updated price, got %f", product.Price)
	}
	if product.Quantity != 0 {
		t.Fatalf("expected quantity zero allowed, got %d", product.Quantity)
	}
}
