package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics содержит метрики саги резервирования и складских операций.
type ReservationMetrics struct {
	// Счётчики исходов резервирования
	reservationStarted     prometheus.Counter
	reservationCompleted   prometheus.Counter
	reservationFailed      prometheus.Counter
	reservationCompensated prometheus.Counter

	// Гистограммы времени выполнения
	reservationDuration prometheus.Histogram
	lineDuration        *prometheus.HistogramVec

	// Складские операции по типу и результату
	stockOps *prometheus.CounterVec

	// Состояние circuit breaker по операциям (0=closed, 1=open, 2=half-open)
	breakerState *prometheus.GaugeVec

	// Gauge для активных резервирований
	activeReservations prometheus.Gauge
}

// NewReservationMetrics создаёт метрики в default-регистраторе Prometheus.
func NewReservationMetrics() *ReservationMetrics {
	return newReservationMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newReservationMetricsWithRegisterer(registerer prometheus.Registerer) *ReservationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ReservationMetrics{
		reservationStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_reservation_started_total",
			Help: "Total number of stock reservations started",
		}),
		reservationCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_reservation_completed_total",
			Help: "Total number of stock reservations completed successfully",
		}),
		reservationFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_reservation_failed_total",
			Help: "Total number of stock reservations aborted on a line failure",
		}),
		reservationCompensated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ecom_reservation_compensated_total",
			Help: "Total number of aborted reservations rolled back by compensation",
		}),
		reservationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ecom_reservation_duration_seconds",
			Help:    "Duration of the whole reservation saga in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		lineDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ecom_reservation_line_duration_seconds",
			Help:    "Duration of a single line decrement in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"outcome"}),
		stockOps: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ecom_stock_operations_total",
			Help: "Total number of stock ledger operations by type and result",
		}, []string{"op", "result"}),
		breakerState: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "ecom_inventory_breaker_state",
			Help: "Circuit breaker state per inventory operation (0=closed, 1=open, 2=half-open)",
		}, []string{"operation"}),
		activeReservations: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ecom_active_reservations",
			Help: "Number of currently running reservation sagas",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordReservationStarted увеличивает счётчик запущенных резервирований.
func (m *ReservationMetrics) RecordReservationStarted() {
	m.reservationStarted.Inc()
	m.activeReservations.Inc()
}

// RecordReservationCompleted увеличивает счётчик успешных резервирований.
func (m *ReservationMetrics) RecordReservationCompleted() {
	m.reservationCompleted.Inc()
}

// RecordReservationFailed увеличивает счётчик прерванных резервирований.
func (m *ReservationMetrics) RecordReservationFailed() {
	m.reservationFailed.Inc()
}

// RecordReservationCompensated увеличивает счётчик компенсированных резервирований.
func (m *ReservationMetrics) RecordReservationCompensated() {
	m.reservationCompensated.Inc()
}

// RecordReservationFinished уменьшает число активных резервирований.
func (m *ReservationMetrics) RecordReservationFinished() {
	m.activeReservations.Dec()
}

// RecordReservationDuration записывает время выполнения саги.
func (m *ReservationMetrics) RecordReservationDuration(duration time.Duration) {
	m.reservationDuration.Observe(duration.Seconds())
}

// RecordLineDuration записывает время decrement одной позиции по исходу.
func (m *ReservationMetrics) RecordLineDuration(outcome string, duration time.Duration) {
	m.lineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordStockOp учитывает складскую операцию по типу и результату.
func (m *ReservationMetrics) RecordStockOp(op, result string) {
	m.stockOps.WithLabelValues(op, result).Inc()
}

// RecordBreakerState фиксирует текущее состояние breaker для операции.
func (m *ReservationMetrics) RecordBreakerState(operation string, state float64) {
	m.breakerState.WithLabelValues(operation).Set(state)
}
