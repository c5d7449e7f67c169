package order

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/messaging/kafka"
)

// Service управляет жизненным циклом заказа после резервирования:
// подтверждение, доставка, отмена. Переходы валидируются машиной
// состояний заказа; нарушение возвращается как ErrInvalidTransition,
// не как фатальная ошибка.
type Service struct {
	orders   domain.OrderRepository
	logger   *log.Entry
	producer *kafka.Producer
}

// Option настраивает Service.
type Option func(*Service)

// WithProducer подключает публикацию событий заказа в Kafka.
func WithProducer(p *kafka.Producer) Option {
	return func(s *Service) { s.producer = p }
}

// NewService создаёт сервис жизненного цикла заказов.
func NewService(orders domain.OrderRepository, logger *log.Entry, options ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}

	s := &Service{
		orders: orders,
		logger: logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Get возвращает заказ с позициями.
func (s *Service) Get(id string) (domain.Order, error) {
	return s.orders.Get(id)
}

// List возвращает все заказы.
func (s *Service) List() ([]domain.Order, error) {
	return s.orders.List()
}

// ListLines возвращает позиции всех заказов.
func (s *Service) ListLines() ([]domain.OrderLine, error) {
	return s.orders.ListLines()
}

// Confirm переводит заказ new → processing.
func (s *Service) Confirm(id string) (domain.Order, error) {
	return s.transition(id, (*domain.Order).Confirm, kafka.EventTypeOrderConfirmed)
}

// Deliver переводит заказ processing → delivered.
func (s *Service) Deliver(id string) (domain.Order, error) {
	return s.transition(id, (*domain.Order).Deliver, kafka.EventTypeOrderDelivered)
}

// Cancel отменяет заказ из любого нетерминального статуса.
func (s *Service) Cancel(id string) (domain.Order, error) {
	return s.transition(id, (*domain.Order).Cancel, kafka.EventTypeOrderCancelled)
}

// Delete удаляет заказ вместе с позициями.
func (s *Service) Delete(id string) error {
	if err := s.orders.Delete(id); err != nil {
		return err
	}
	s.publishEvent(kafka.EventTypeOrderDeleted, id, "")
	return nil
}

// transition применяет переход машины состояний и сохраняет заказ.
// Конфликт версий повторяется на свежей копии: параллельная сага или
// воркер очистки могли успеть изменить заказ первыми.
func (s *Service) transition(id string, step func(*domain.Order) error, eventType kafka.EventType) (domain.Order, error) {
	const maxRetries = 3

	order, err := s.orders.Get(id)
	if err != nil {
		return domain.Order{}, err
	}

	for attempt := 0; ; attempt++ {
		if err := step(&order); err != nil {
			return domain.Order{}, err
		}
		order.UpdatedAt = time.Now().UTC()

		err := s.orders.Save(order)
		if err == nil {
			order.Version++
			break
		}
		if !domain.IsVersionConflict(err) || attempt == maxRetries-1 {
			return domain.Order{}, err
		}

		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"attempt":  attempt + 1,
		}).Warn("version conflict, retrying transition on fresh order")
		order, err = s.orders.Get(id)
		if err != nil {
			return domain.Order{}, err
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"state":    order.State,
	}).Info("order state changed")
	s.publishEvent(eventType, order.ID, string(order.State))

	return order, nil
}

func (s *Service) publishEvent(eventType kafka.EventType, orderID, state string) {
	if s.producer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, orderID, state, nil)
	if err := s.producer.PublishEvent(kafka.TopicOrderEvents, orderID, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   orderID,
		}).Warn("failed to publish order event to kafka")
	}
}
