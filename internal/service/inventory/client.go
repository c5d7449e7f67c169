package inventory

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/metrics"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/breaker"
)

// Имена операций — по одному breaker на каждый вид вызова склада.
const (
	opGetProduct   = "get_product"
	opListProducts = "list_products"
	opDecrement    = "decrement"
	opIncrement    = "increment"
)

// Client — устойчивый клиент склада. Каждый вид операции защищён
// собственным circuit breaker; при открытом breaker или транспортном сбое
// возвращается фиксированный fallback операции. Fallback никогда не
// выдумывает успешное количество, а бизнес-ошибки склада проходят насквозь
// и не считаются сбоями.
type Client struct {
	gateway domain.InventoryGateway
	logger  *log.Entry
	metrics *metrics.ReservationMetrics

	getBreaker  *breaker.Breaker
	listBreaker *breaker.Breaker
	decBreaker  *breaker.Breaker
	incBreaker  *breaker.Breaker
}

// ClientOption настраивает Client.
type ClientOption func(*Client)

// WithMetrics подключает gauge состояния breaker'ов.
func WithMetrics(m *metrics.ReservationMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient оборачивает gateway четырьмя независимыми breaker'ами.
func NewClient(gateway domain.InventoryGateway, cfg breaker.Config, logger *log.Entry, options ...ClientOption) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-client")
	}

	c := &Client{
		gateway:     gateway,
		logger:      logger,
		getBreaker:  breaker.New(opGetProduct, cfg, logger),
		listBreaker: breaker.New(opListProducts, cfg, logger),
		decBreaker:  breaker.New(opDecrement, cfg, logger),
		incBreaker:  breaker.New(opIncrement, cfg, logger),
	}
	for _, option := range options {
		option(c)
	}

	if c.metrics != nil {
		observe := func(name string, state breaker.State) {
			c.metrics.RecordBreakerState(name, float64(state))
		}
		c.getBreaker.OnStateChange(observe)
		c.listBreaker.OnStateChange(observe)
		c.decBreaker.OnStateChange(observe)
		c.incBreaker.OnStateChange(observe)
	}

	return c
}

// isTransportFailure отделяет сбои зависимости от бизнес-таксономии.
func isTransportFailure(err error) bool {
	return !domain.IsBusinessError(err)
}

// GetProduct читает товар. Fallback: ErrProductNotFound —
// недоступный склад неотличим для читателя от отсутствующего товара.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := c.getBreaker.Do(func() error {
		p, err := c.gateway.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		product = p
		return nil
	}, isTransportFailure)
	if err != nil {
		if domain.IsBusinessError(err) {
			return domain.Product{}, err
		}
		c.logFallback(opGetProduct, id, err)
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// ListProducts читает каталог. Fallback: ErrUnavailable — пустой каталог
// не фабрикуется.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.listBreaker.Do(func() error {
		list, err := c.gateway.ListProducts(ctx)
		if err != nil {
			return err
		}
		products = list
		return nil
	}, isTransportFailure)
	if err != nil {
		if domain.IsBusinessError(err) {
			return nil, err
		}
		c.logFallback(opListProducts, "", err)
		return nil, domain.ErrUnavailable
	}
	return products, nil
}

// DecrementQuantity резервирует amount единиц товара. Fallback:
// ErrUnavailable, отличимый от ErrInsufficientStock — вызывающий не должен
// путать «сервис лежит» с «нет стока».
func (c *Client) DecrementQuantity(ctx context.Context, id string, amount int) (int, error) {
	return c.adjust(ctx, c.decBreaker, opDecrement, id, amount, c.gateway.DecrementQuantity)
}

// IncrementQuantity возвращает amount единиц на склад. Fallback: ErrUnavailable.
func (c *Client) IncrementQuantity(ctx context.Context, id string, amount int) (int, error) {
	return c.adjust(ctx, c.incBreaker, opIncrement, id, amount, c.gateway.IncrementQuantity)
}

func (c *Client) adjust(
	ctx context.Context,
	b *breaker.Breaker,
	op string,
	id string,
	amount int,
	call func(context.Context, string, int) (int, error),
) (int, error) {
	var quantity int
	err := b.Do(func() error {
		q, err := call(ctx, id, amount)
		if err != nil {
			return err
		}
		quantity = q
		return nil
	}, isTransportFailure)
	if err != nil {
		if domain.IsBusinessError(err) {
			return 0, err
		}
		c.logFallback(op, id, err)
		return 0, domain.ErrUnavailable
	}
	return quantity, nil
}

// BreakerStates отдаёт текущее состояние breaker'ов для health-проверок.
func (c *Client) BreakerStates() map[string]breaker.State {
	return map[string]breaker.State{
		opGetProduct:   c.getBreaker.State(),
		opListProducts: c.listBreaker.State(),
		opDecrement:    c.decBreaker.State(),
		opIncrement:    c.incBreaker.State(),
	}
}

func (c *Client) logFallback(op, id string, err error) {
	entry := c.logger.WithError(err).WithField("operation", op)
	if id != "" {
		entry = entry.WithField("product_id", id)
	}
	entry.Warn("inventory call degraded to fallback")
}

var _ domain.InventoryGateway = (*Client)(nil)
