package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/health"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/messaging/kafka"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/postgres"
)

// Config описывает адреса, на которых сервис принимает трафик.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
}

// DefaultInventoryConfig — адреса inventory-сервиса по умолчанию.
func DefaultInventoryConfig() Config {
	return Config{
		HTTPAddr:    ":8081",
		MetricsAddr: ":9090",
	}
}

// DefaultOrderConfig — адреса order-сервиса по умолчанию.
func DefaultOrderConfig() Config {
	return Config{
		HTTPAddr:    ":8082",
		MetricsAddr: ":9091",
	}
}

// newKafkaProducer создаёт producer из KAFKA_BROKERS. Kafka опционален:
// при ошибке сервис продолжает работу без событий.
func newKafkaProducer(logger *log.Entry) *kafka.Producer {
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		return nil
	}

	brokers := strings.Split(kafkaBrokers, ",")
	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer
}

// openPostgres подключает хранилище из POSTGRES_DSN и применяет миграции.
// Пустой DSN означает in-memory хранилище.
func openPostgres(ctx context.Context, logger *log.Entry) (*postgres.Store, error) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Info("POSTGRES_DSN не задан, используем in-memory хранилище")
		return nil, nil
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("postgres хранилище подключено, миграции применены")
	return store, nil
}

func closeProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// serveHTTP блокируется до остановки сервера или отмены контекста.
func serveHTTP(ctx context.Context, srv *http.Server, logger *log.Entry) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer поднимает /metrics и health-эндпоинты.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
