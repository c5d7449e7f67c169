package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

const defaultClientTimeout = 5 * time.Second

// InventoryClient — HTTP-реализация InventoryGateway для order-сервиса.
// Статусы ответа транслируются обратно в доменную таксономию; любой сетевой
// сбой или неожиданный статус — транспортная ошибка, которую считает breaker.
type InventoryClient struct {
	baseURL string
	http    *http.Client
}

// NewInventoryClient создаёт клиент склада по базовому URL.
func NewInventoryClient(baseURL string, client *http.Client) *InventoryClient {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &InventoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *InventoryClient) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var payload productPayload
	if err := c.do(ctx, http.MethodGet, "/products/"+id, nil, &payload); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:          payload.ID,
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		CreatedAt:   payload.CreatedAt,
		UpdatedAt:   payload.UpdatedAt,
	}, nil
}

func (c *InventoryClient) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var payload []productPayload
	if err := c.do(ctx, http.MethodGet, "/products", nil, &payload); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(payload))
	for _, p := range payload {
		products = append(products, domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Quantity:    p.Quantity,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return products, nil
}

func (c *InventoryClient) DecrementQuantity(ctx context.Context, id string, amount int) (int, error) {
	return c.adjust(ctx, id, "decrement", amount)
}

func (c *InventoryClient) IncrementQuantity(ctx context.Context, id string, amount int) (int, error) {
	return c.adjust(ctx, id, "increment", amount)
}

func (c *InventoryClient) adjust(ctx context.Context, id, op string, amount int) (int, error) {
	var payload quantityResponse
	body := amountPayload{Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/products/"+id+"/"+op, body, &payload); err != nil {
		return 0, err
	}
	return payload.Quantity, nil
}

func (c *InventoryClient) do(ctx context.Context, method, path string, body, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build inventory request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call inventory service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusToError(resp.StatusCode); err != nil {
		// Тело с ошибкой дочитываем и выбрасываем: важен только статус.
		_, _ = io.Copy(io.Discard, resp.Body)
		return err
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode inventory response: %w", err)
		}
	}
	return nil
}

// statusToError — обратная сторона writeError на сервере склада.
func statusToError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return domain.ErrProductNotFound
	case status == http.StatusBadRequest:
		return domain.ErrInvalidAmount
	case status == http.StatusConflict:
		return domain.ErrInsufficientStock
	default:
		return fmt.Errorf("inventory service returned status %d", status)
	}
}

var _ domain.InventoryGateway = (*InventoryClient)(nil)
