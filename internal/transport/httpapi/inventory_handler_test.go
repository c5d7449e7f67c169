package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/ledger"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/memory"
)

func newInventoryServer(t *testing.T) (*httptest.Server, *ledger.Service) {
	t.Helper()

	logger := log.New().WithField("test", "inventory-http")
	svc := ledger.NewService(memory.NewProductRepository(), logger)

	mux := http.NewServeMux()
	NewInventoryHandler(svc, logger).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestInventoryHandler_CreateAndGet(t *testing.T) {
	srv, _ := newInventoryServer(t)

	resp := postJSON(t, srv.URL+"/products", productPayload{
		Name:     "monitor",
		Price:    249.99,
		Quantity: 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created productPayload
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created product: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned product id")
	}

	getResp, err := http.Get(srv.URL + "/products/" + created.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}
}

func TestInventoryHandler_StatusMapping(t *testing.T) {
	srv, svc := newInventoryServer(t)

	product, err := svc.Add(mustProduct(2))
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	cases := []struct {
		name   string
		url    string
		body   interface{}
		status int
	}{
		{"decrement beyond stock", srv.URL + "/products/" + product.ID + "/decrement", amountPayload{Amount: 5}, http.StatusConflict},
		{"invalid amount", srv.URL + "/products/" + product.ID + "/decrement", amountPayload{Amount: 0}, http.StatusBadRequest},
		{"missing product", srv.URL + "/products/missing/decrement", amountPayload{Amount: 1}, http.StatusNotFound},
		{"invalid create", srv.URL + "/products", productPayload{Name: "", Price: 1}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, tc.url, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestInventoryHandler_EmptyCatalogIsNotFound(t *testing.T) {
	srv, _ := newInventoryServer(t)

	resp, err := http.Get(srv.URL + "/products")
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for empty catalog, got %d", resp.StatusCode)
	}
}

func TestInventoryHandler_DecrementReturnsNewQuantity(t *testing.T) {
	srv, svc := newInventoryServer(t)

	product, err := svc.Add(mustProduct(5))
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	resp := postJSON(t, srv.URL+"/products/"+product.ID+"/decrement", amountPayload{Amount: 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result quantityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode quantity response: %v", err)
	}
	if result.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", result.Quantity)
	}
}

func TestInventoryHandler_PartialUpdate(t *testing.T) {
	srv, svc := newInventoryServer(t)

	product, err := svc.Add(mustProduct(5))
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	raw := []byte(`{"name":"monitor v2"}`)
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/products/"+product.ID, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch product: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var updated productPayload
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated product: %v", err)
	}
	if updated.Name != "monitor v2" {
		t.Fatalf("expected updated name, got %s", updated.Name)
	}
	if updated.Price != product.Price || updated.Quantity != 5 {
		t.Fatalf("untouched fields must be preserved: %+v", updated)
	}
}

func mustProduct(quantity int) domain.Product {
	return domain.Product{
		Name:     fmt.Sprintf("monitor-%d", quantity),
		Price:    249.99,
		Quantity: quantity,
	}
}
