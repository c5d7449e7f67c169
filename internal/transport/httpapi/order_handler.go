package httpapi

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/order"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/saga"
)

// linePayload — DTO позиции заказа.
type linePayload struct {
	ID        string  `json:"id,omitempty"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// orderPayload — DTO заказа.
type orderPayload struct {
	ID        string        `json:"id"`
	OrderDate time.Time     `json:"order_date"`
	State     string        `json:"state"`
	Lines     []linePayload `json:"lines"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// createOrderPayload — запрос на создание заказа.
type createOrderPayload struct {
	Lines []linePayload `json:"lines"`
}

func toOrderPayload(o domain.Order) orderPayload {
	lines := make([]linePayload, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, linePayload{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return orderPayload{
		ID:        o.ID,
		OrderDate: o.OrderDate,
		State:     string(o.State),
		Lines:     lines,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// OrderHandler — REST-поверхность сервиса заказов: сага создания плюс
// операции жизненного цикла.
type OrderHandler struct {
	saga   *saga.Coordinator
	orders *order.Service
	logger *log.Entry
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(c *saga.Coordinator, orders *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "order-http")
	}
	return &OrderHandler{saga: c, orders: orders, logger: logger}
}

// Register вешает маршруты заказов на mux.
func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.create)
	mux.HandleFunc("GET /orders", h.list)
	mux.HandleFunc("GET /orders/{id}", h.get)
	mux.HandleFunc("DELETE /orders/{id}", h.delete)
	mux.HandleFunc("POST /orders/{id}/confirm", h.confirm)
	mux.HandleFunc("POST /orders/{id}/deliver", h.deliver)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancel)
	mux.HandleFunc("GET /order-lines", h.listLines)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload createOrderPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	requests := make([]domain.LineRequest, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		requests = append(requests, domain.LineRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	created, err := h.saga.CreateOrder(r.Context(), requests)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderPayload(created))
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		payload = append(payload, toOrderPayload(o))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderPayload(o))
}

func (h *OrderHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Confirm)
}

func (h *OrderHandler) deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Deliver)
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Cancel)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, op func(string) (domain.Order, error)) {
	o, err := op(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderPayload(o))
}

func (h *OrderHandler) listLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.orders.ListLines()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payload := make([]linePayload, 0, len(lines))
	for _, line := range lines {
		payload = append(payload, linePayload{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}
