package orphan

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupMaxAge    = 30 * time.Minute
	defaultCleanupBatchSize = 200
)

var (
	orphanCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecom_orphan_cleanup_runs_total",
		Help: "Total number of orphan order cleanup runs grouped by result.",
	}, []string{"result"})
	orphanCleanupCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecom_orphan_cleanup_cancelled_total",
		Help: "Total number of stale empty orders cancelled by the cleanup worker.",
	})
	orphanCleanupLastCancelled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecom_orphan_cleanup_last_cancelled",
		Help: "Number of orders cancelled during the last cleanup run.",
	})
)

// CleanupOptions задаёт параметры воркера очистки заказов-«сирот».
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между циклами очистки.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithMaxAge задаёт возраст, после которого пустой new-заказ считается сиротой.
func WithMaxAge(maxAge time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.MaxAge = maxAge
	}
}

// WithBatchSize задаёт число заказов, обрабатываемых за один цикл.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker периодически отменяет заказы-«сироты»: прерванная сага
// оставляет заказ в статусе new без позиций, и без уборки такие строки
// копятся бесконечно.
type CleanupWorker struct {
	orders    domain.OrderRepository
	logger    *log.Entry
	interval  time.Duration
	maxAge    time.Duration
	batchSize int
}

// NewCleanupWorker создаёт воркер очистки заказов-сирот.
func NewCleanupWorker(orders domain.OrderRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		MaxAge:    defaultCleanupMaxAge,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "orphan-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultCleanupMaxAge
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		orders:    orders,
		logger:    logger,
		interval:  opts.Interval,
		maxAge:    opts.MaxAge,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.orders == nil {
		w.logger.Warn("orphan cleanup worker is disabled: orders repo is nil")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, now time.Time) {
	cancelled, err := w.CancelStale(ctx, now)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		orphanCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("orphan cleanup run failed")
		return
	}

	orphanCleanupRunsTotal.WithLabelValues("ok").Inc()
	orphanCleanupLastCancelled.Set(float64(cancelled))
	if cancelled > 0 {
		w.logger.WithField("cancelled", cancelled).Info("orphan cleanup completed")
	}
}

// CancelStale отменяет все пустые new-заказы старше now-maxAge порциями
// batchSize. Конфликт версий на отдельном заказе пропускается: кто-то уже
// работает с ним, следующий цикл перепроверит.
func (w *CleanupWorker) CancelStale(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	before := now.Add(-w.maxAge)

	totalCancelled := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalCancelled, err
		}

		stale, err := w.orders.ListStaleEmpty(before, w.batchSize)
		if err != nil {
			return totalCancelled, err
		}

		cancelled := 0
		for _, order := range stale {
			if err := ctx.Err(); err != nil {
				return totalCancelled, err
			}
			if err := order.Cancel(); err != nil {
				continue
			}
			order.UpdatedAt = now
			if err := w.orders.Save(order); err != nil {
				if domain.IsVersionConflict(err) {
					w.logger.WithField("order_id", order.ID).Debug("orphan order changed concurrently, skipping")
					continue
				}
				return totalCancelled, err
			}
			cancelled++
		}

		totalCancelled += cancelled
		if cancelled > 0 {
			orphanCleanupCancelledTotal.Add(float64(cancelled))
		}

		// cancelled == 0 при полной пачке означает, что все заказы пачки
		// ушли по конфликтам; без выхода цикл крутился бы на месте.
		if len(stale) < w.batchSize || cancelled == 0 {
			break
		}
	}

	return totalCancelled, nil
}
