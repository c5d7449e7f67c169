package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/messaging/kafka"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/metrics"
)

// Coordinator проводит сагу резервирования: заказ создаётся до известности
// исходов, позиции резервируются конкурентно, первый сбой прерывает сагу.
// Сага — не транзакция: атомарности между товарами нет.
type Coordinator struct {
	orders    domain.OrderRepository
	inventory domain.InventoryGateway
	logger    *log.Entry
	metrics   *metrics.ReservationMetrics
	producer  *kafka.Producer

	// compensate включает best-effort откат при прерывании: успевшие
	// decrement возвращаются increment'ами, заказ-сирота отменяется.
	// По умолчанию выключено: прерванная сага оставляет уже списанный
	// сток списанным, а заказ — в статусе new без позиций.
	compensate bool
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

// WithMetrics подключает метрики саги.
func WithMetrics(m *metrics.ReservationMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithProducer подключает публикацию событий саги в Kafka.
func WithProducer(p *kafka.Producer) Option {
	return func(c *Coordinator) { c.producer = p }
}

// WithCompensation включает откат успевших decrement при прерывании саги.
func WithCompensation() Option {
	return func(c *Coordinator) { c.compensate = true }
}

// NewCoordinator создаёт сагу поверх репозитория заказов и клиента склада.
func NewCoordinator(orders domain.OrderRepository, inventory domain.InventoryGateway, logger *log.Entry, options ...Option) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "reservation-saga")
	}

	c := &Coordinator{
		orders:    orders,
		inventory: inventory,
		logger:    logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// lineResult — исход decrement одной позиции.
type lineResult struct {
	request  domain.LineRequest
	quantity int
	err      error
	took     time.Duration
}

// CreateOrder резервирует сток под каждую запрошенную позицию и
// материализует заказ. Заказ создаётся в статусе new до резервирования,
// поэтому при прерванной саге его строка остаётся без позиций. Первый
// сбой любой позиции возвращает ReservationError; результатов остальных
// позиций сага не дожидается, хотя уже отправленные decrement доработают
// и их эффект сохранится.
func (c *Coordinator) CreateOrder(ctx context.Context, requests []domain.LineRequest) (domain.Order, error) {
	started := time.Now()
	if c.metrics != nil {
		c.metrics.RecordReservationStarted()
		defer func() {
			c.metrics.RecordReservationFinished()
			c.metrics.RecordReservationDuration(time.Since(started))
		}()
	}

	order, err := c.persistBareOrder(requests)
	if err != nil {
		c.recordFailed()
		return domain.Order{}, err
	}

	c.publishEvent(kafka.EventTypeReservationStarted, order.ID, string(order.State), map[string]interface{}{
		"lines_requested": len(requests),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Буфер на все позиции: отставшие goroutine не зависают на записи,
	// даже когда сага уже прервалась и никто не читает.
	results := make(chan lineResult, len(requests))
	for _, request := range requests {
		go func(request domain.LineRequest) {
			lineStart := time.Now()
			quantity, err := c.inventory.DecrementQuantity(ctx, request.ProductID, request.Quantity)
			results <- lineResult{
				request:  request,
				quantity: quantity,
				err:      err,
				took:     time.Since(lineStart),
			}
		}(request)
	}

	now := time.Now().UTC()
	lines := make([]domain.OrderLine, 0, len(requests))
	for range requests {
		res := <-results
		c.recordLine(res)

		if res.err != nil {
			cancel()
			return domain.Order{}, c.abort(order, lines, results, len(requests)-len(lines)-1, res)
		}

		lines = append(lines, domain.OrderLine{
			ID:        uuid.NewString(),
			ProductID: res.request.ProductID,
			Quantity:  res.request.Quantity,
			Price:     res.request.Price,
			CreatedAt: now,
		})
	}

	if err := c.orders.SaveLines(order.ID, lines); err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist reserved lines")
		c.recordFailed()
		return domain.Order{}, err
	}
	order.Lines = lines

	if c.metrics != nil {
		c.metrics.RecordReservationCompleted()
	}
	c.publishEvent(kafka.EventTypeReservationCompleted, order.ID, string(order.State), map[string]interface{}{
		"lines_reserved": len(lines),
	})
	c.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"lines":    len(lines),
	}).Info("reservation saga completed")

	return order, nil
}

// persistBareOrder создаёт заказ без позиций — идентификатор нужен до того,
// как известны исходы резервирования.
func (c *Coordinator) persistBareOrder(requests []domain.LineRequest) (domain.Order, error) {
	probe := domain.Order{Lines: make([]domain.OrderLine, 0, len(requests))}
	for _, request := range requests {
		probe.Lines = append(probe.Lines, domain.OrderLine{
			ProductID: request.ProductID,
			Quantity:  request.Quantity,
			Price:     request.Price,
		})
	}
	if errs := probe.ValidateLines(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	order := domain.Order{ID: uuid.NewString()}
	order.NormalizeForCreate(time.Now().UTC())
	if err := c.orders.Create(order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// abort оформляет прерывание саги: метрики, событие, опциональная
// компенсация — и возвращает ReservationError с виновной позицией.
func (c *Coordinator) abort(order domain.Order, reserved []domain.OrderLine, results <-chan lineResult, outstanding int, failed lineResult) error {
	rerr := &domain.ReservationError{
		OrderID:   order.ID,
		ProductID: failed.request.ProductID,
		Cause:     failed.err,
	}

	c.logger.WithError(failed.err).WithFields(log.Fields{
		"order_id":   order.ID,
		"product_id": failed.request.ProductID,
	}).Warn("reservation saga aborted")

	c.recordFailed()
	c.publishEvent(kafka.EventTypeReservationFailed, order.ID, string(order.State), map[string]interface{}{
		"product_id": failed.request.ProductID,
		"cause":      failed.err.Error(),
	})

	if c.compensate {
		// Откат выполняется в фоне: вызывающий не ждёт ни отставшие
		// decrement, ни возвращающие increment.
		go c.compensateAbort(order, reserved, results, outstanding)
	}

	return rerr
}

// compensateAbort возвращает на склад всё, что сага успела списать: уже
// собранные позиции и поздние успехи из отставших goroutine. Заказ-сирота
// переводится в cancelled. Откат best-effort: неудавшийся increment только
// логируется.
func (c *Coordinator) compensateAbort(order domain.Order, reserved []domain.OrderLine, results <-chan lineResult, outstanding int) {
	ctx := context.Background()

	refund := func(productID string, amount int) {
		if _, err := c.inventory.IncrementQuantity(ctx, productID, amount); err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": productID,
			}).Warn("compensating increment failed")
		}
	}

	for _, line := range reserved {
		refund(line.ProductID, line.Quantity)
	}
	for i := 0; i < outstanding; i++ {
		res := <-results
		c.recordLine(res)
		if res.err == nil {
			refund(res.request.ProductID, res.request.Quantity)
		}
	}

	fresh, err := c.orders.Get(order.ID)
	if err == nil && fresh.Cancel() == nil {
		fresh.UpdatedAt = time.Now().UTC()
		if err := c.orders.Save(fresh); err != nil {
			c.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to cancel orphan order")
		}
	}

	if c.metrics != nil {
		c.metrics.RecordReservationCompensated()
	}
	c.publishEvent(kafka.EventTypeReservationCompensated, order.ID, string(domain.OrderStateCancelled), nil)
}

func (c *Coordinator) recordLine(res lineResult) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if res.err != nil {
		outcome = "failed"
	}
	c.metrics.RecordLineDuration(outcome, res.took)
}

func (c *Coordinator) recordFailed() {
	if c.metrics != nil {
		c.metrics.RecordReservationFailed()
	}
}

func (c *Coordinator) publishEvent(eventType kafka.EventType, orderID, state string, metadata map[string]interface{}) {
	if c.producer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, orderID, state, metadata)
	if err := c.producer.PublishEvent(kafka.TopicOrderEvents, orderID, event); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   orderID,
		}).Warn("failed to publish reservation event to kafka")
	}
}
