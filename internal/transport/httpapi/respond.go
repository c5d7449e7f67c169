package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

// errorResponse — единый формат ошибки API.
type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError транслирует доменную таксономию в HTTP-статусы. Коды согласованы
// с клиентом склада: 404 — нет сущности, 400 — некорректный ввод,
// 409 — конфликт стока/состояния, 503 — склад недоступен.
func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	resp := errorResponse{Error: err.Error()}

	var rerr *domain.ReservationError
	if errors.As(err, &rerr) {
		resp.ProductID = rerr.ProductID
	}

	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrEmptyCatalog):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrProductPriceInvalid),
		errors.Is(err, domain.ErrProductQtyInvalid),
		errors.Is(err, domain.ErrLineProductRequired),
		errors.Is(err, domain.ErrLineQtyInvalid),
		errors.Is(err, domain.ErrLinePriceInvalid):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrProductExists):
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, domain.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		logger.WithError(err).Error("unhandled error in http handler")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
