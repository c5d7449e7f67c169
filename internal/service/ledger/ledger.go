package ledger

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/messaging/kafka"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/metrics"
)

// Service — складская книга: владеет количеством товара и его охраняемыми
// мутациями. Сериализация конкурентных increment/decrement по одному товару
// обеспечивается атомарным AdjustQuantity репозитория.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
	metrics  *metrics.ReservationMetrics
	producer *kafka.Producer // опциональный producer складских событий
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает метрики складских операций.
func WithMetrics(m *metrics.ReservationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProducer подключает публикацию stock-событий в Kafka.
func WithProducer(p *kafka.Producer) Option {
	return func(s *Service) { s.producer = p }
}

// NewService создаёт складскую книгу поверх репозитория товаров.
func NewService(products domain.ProductRepository, logger *log.Entry, options ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "stock-ledger")
	}

	s := &Service{
		products: products,
		logger:   logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(id string) (domain.Product, error) {
	product, err := s.products.Get(id)
	if err != nil {
		s.recordOp("get", err)
		return domain.Product{}, err
	}
	s.recordOp("get", nil)
	return product, nil
}

// List возвращает весь каталог. Пустой каталог — ошибка ErrEmptyCatalog:
// источник отличает «каталога нет» от обычного пустого списка.
func (s *Service) List() ([]domain.Product, error) {
	products, err := s.products.List()
	if err != nil {
		s.recordOp("list", err)
		return nil, err
	}
	if len(products) == 0 {
		s.recordOp("list", domain.ErrEmptyCatalog)
		return nil, domain.ErrEmptyCatalog
	}
	s.recordOp("list", nil)
	return products, nil
}

// Add заводит новый товар в каталоге и возвращает его с присвоенным ID.
func (s *Service) Add(product domain.Product) (domain.Product, error) {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	if errs := product.ValidateInvariants(); len(errs) > 0 {
		s.recordOp("add", errs[0])
		return domain.Product{}, errs[0]
	}

	if err := s.products.Create(product); err != nil {
		s.recordOp("add", err)
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"quantity":   product.Quantity,
	}).Info("product added to catalog")
	s.recordOp("add", nil)
	return product, nil
}

// UpdateFields частично обновляет товар: пустые и некорректные поля patch
// сохраняют прежние значения.
func (s *Service) UpdateFields(id string, patch domain.ProductPatch) (domain.Product, error) {
	product, err := s.products.Get(id)
	if err != nil {
		s.recordOp("update", err)
		return domain.Product{}, err
	}

	patch.Apply(&product)
	if err := s.products.Save(product); err != nil {
		s.recordOp("update", err)
		return domain.Product{}, err
	}

	s.recordOp("update", nil)
	return product, nil
}

// Delete убирает товар из каталога.
func (s *Service) Delete(id string) error {
	err := s.products.Delete(id)
	s.recordOp("delete", err)
	return err
}

// Increment увеличивает количество товара на amount и возвращает новое значение.
func (s *Service) Increment(id string, amount int) (int, error) {
	if amount <= 0 {
		s.recordOp("increment", domain.ErrInvalidAmount)
		return 0, domain.ErrInvalidAmount
	}

	quantity, err := s.products.AdjustQuantity(id, amount)
	if err != nil {
		s.recordOp("increment", err)
		return 0, err
	}

	s.recordOp("increment", nil)
	s.publishStockEvent(kafka.EventTypeStockIncremented, id, amount, quantity)
	return quantity, nil
}

// Decrement уменьшает количество товара на amount и возвращает новое значение.
// Перерасход отклоняется с ErrInsufficientStock без мутации: два конкурентных
// decrement не могут совместно увести количество ниже нуля.
func (s *Service) Decrement(id string, amount int) (int, error) {
	if amount <= 0 {
		s.recordOp("decrement", domain.ErrInvalidAmount)
		return 0, domain.ErrInvalidAmount
	}

	quantity, err := s.products.AdjustQuantity(id, -amount)
	if err != nil {
		s.recordOp("decrement", err)
		return 0, err
	}

	s.recordOp("decrement", nil)
	s.publishStockEvent(kafka.EventTypeStockDecremented, id, amount, quantity)
	return quantity, nil
}

func (s *Service) recordOp(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case domain.IsBusinessError(err):
		result = "rejected"
	default:
		result = "error"
	}
	s.metrics.RecordStockOp(op, result)
}

// publishStockEvent отправляет событие склада, если producer настроен.
// Ошибка публикации не откатывает уже выполненную мутацию.
func (s *Service) publishStockEvent(eventType kafka.EventType, productID string, amount, newQuantity int) {
	if s.producer == nil {
		return
	}

	event := kafka.NewStockEvent(eventType, productID, amount, newQuantity)
	if err := s.producer.PublishEvent(kafka.TopicStockEvents, productID, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"product_id": productID,
		}).Warn("failed to publish stock event to kafka")
	}
}
