package app

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/health"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/metrics"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/ledger"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/memory"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/storage/postgres"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/transport/httpapi"
	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/version"
)

// RunInventory запускает inventory-сервис: владелец остатков товаров.
func RunInventory(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "inventory-app")

	store, err := openPostgres(ctx, logger)
	if err != nil {
		return err
	}

	products := memory.NewProductRepository()
	if store != nil {
		products = postgres.NewProductRepository(store)
		defer func() { _ = store.Close() }()
	}

	producer := newKafkaProducer(logger)
	defer closeProducer(producer, logger)

	ledgerOptions := []ledger.Option{ledger.WithMetrics(metrics.NewReservationMetrics())}
	if producer != nil {
		ledgerOptions = append(ledgerOptions, ledger.WithProducer(producer))
	}
	svc := ledger.NewService(products, logger.WithField("layer", "service"), ledgerOptions...)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
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
	httpapi.NewInventoryHandler(svc, logger.WithField("layer", "http")).Register(mux)

	return serveHTTP(ctx, &http.Server{Addr: cfg.HTTPAddr, Handler: mux}, logger)
}
