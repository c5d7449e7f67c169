package httpapi

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/ledger"
)

// productPayload — DTO товара для API склада.
type productPayload struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// amountPayload — тело increment/decrement.
type amountPayload struct {
	Amount int `json:"amount"`
}

// quantityResponse — новое количество после мутации.
type quantityResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func toProductPayload(p domain.Product) productPayload {
	return productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// InventoryHandler — REST-поверхность складской книги.
type InventoryHandler struct {
	ledger *ledger.Service
	logger *log.Entry
}

// NewInventoryHandler создаёт обработчик склада.
func NewInventoryHandler(l *ledger.Service, logger *log.Entry) *InventoryHandler {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-http")
	}
	return &InventoryHandler{ledger: l, logger: logger}
}

// Register вешает маршруты склада на mux.
func (h *InventoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.list)
	mux.HandleFunc("POST /products", h.create)
	mux.HandleFunc("GET /products/{id}", h.get)
	mux.HandleFunc("PATCH /products/{id}", h.update)
	mux.HandleFunc("DELETE /products/{id}", h.delete)
	mux.HandleFunc("POST /products/{id}/decrement", h.decrement)
	mux.HandleFunc("POST /products/{id}/increment", h.increment)
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.ledger.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		payload = append(payload, toProductPayload(p))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.ledger.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(product))
}

func (h *InventoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.ledger.Add(domain.Product{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductPayload(product))
}

func (h *InventoryHandler) update(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Quantity    *int    `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	patch := domain.ProductPatch{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
	}
	if payload.Quantity != nil {
		patch.Quantity = *payload.Quantity
		patch.QuantitySet = true
	}

	product, err := h.ledger.UpdateFields(r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPayload(product))
}

func (h *InventoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) decrement(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.Decrement)
}

func (h *InventoryHandler) increment(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.Increment)
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request, op func(string, int) (int, error)) {
	var payload amountPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	id := r.PathValue("id")
	quantity, err := op(id, payload.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quantityResponse{ProductID: id, Quantity: quantity})
}
