package app

import (
	"context"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/auth"
	healthcheck "github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/health"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/metrics"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/breaker"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/inventory"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/order"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/orphan"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/saga"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/memory"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/postgres"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/transport/httpapi"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/version"
)

// RunOrder запускает order-сервис: создание заказов через резервацию
// стока и машину состояний жизненного цикла.
func RunOrder(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "order-app")

	store, err := openPostgres(ctx, logger)
	if err != nil {
		return err
	}

	orders := memory.NewOrderRepository()
	if store != nil {
		orders = postgres.NewOrderRepository(store)
		defer func() { _ = store.Close() }()
	}

	producer := newKafkaProducer(logger)
	defer closeProducer(producer, logger)

	inventoryURL := os.Getenv("INVENTORY_URL")
	if inventoryURL == "" {
		inventoryURL = "http://localhost:8081"
	}

	m := metrics.NewReservationMetrics()
	gateway := httpapi.NewInventoryClient(inventoryURL, nil)
	client := inventory.NewClient(
		gateway,
		breaker.DefaultConfig(),
		logger.WithField("layer", "inventory-client"),
		inventory.WithMetrics(m),
	)

	sagaOptions := []saga.Option{saga.WithMetrics(m)}
	orderOptions := []order.Option{}
	if producer != nil {
		sagaOptions = append(sagaOptions, saga.WithProducer(producer))
		orderOptions = append(orderOptions, order.WithProducer(producer))
	}
	// Компенсация выключена по умолчанию: прерванная резервация оставляет
	// уже списанный сток списанным. Включается явно.
	if os.Getenv("SAGA_COMPENSATION") == "enabled" {
		sagaOptions = append(sagaOptions, saga.WithCompensation())
		logger.Info("saga compensation enabled")
	}

	serviceLogger := logger.WithField("layer", "service")
	coordinator := saga.NewCoordinator(orders, client, serviceLogger, sagaOptions...)
	lifecycle := order.NewService(orders, serviceLogger, orderOptions...)

	// Фоновая зачистка осиротевших заказов без строк.
	worker := orphan.NewCleanupWorker(orders, orphan.WithLogger(logger.WithField("layer", "orphan-cleanup")))
	go worker.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("inventory", healthcheck.NewBreakerChecker("inventory", client.BreakerStates))
	if store != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	mux := http.NewServeMux()
	httpapi.NewOrderHandler(coordinator, lifecycle, logger.WithField("layer", "http")).Register(mux)

	// Обычно роли проверяет внешний шлюз; AUTH_REQUIRED включает
	// проверку на самом сервисе, когда шлюза перед ним нет.
	var handler http.Handler = mux
	if os.Getenv("AUTH_REQUIRED") != "" {
		handler = auth.RequireRole(auth.RoleUser, logger.WithField("layer", "auth"), mux)
	}

	return serveHTTP(ctx, &http.Server{Addr: cfg.HTTPAddr, Handler: handler}, logger)
}
