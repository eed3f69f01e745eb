package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/docs"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/dedup"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/handler"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/logger"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/publisher/kafka"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/queue/sqs"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/postgres"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/service"
)

// @title Sponsorship Attribution Service API
// @version 1.0
// @description Ingests podcast sponsorship events and serves multi-touch attribution and ROI
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("port", cfg.Service.APIPort),
		zap.Strings("models", cfg.Attribution.Models))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)
	events := clickhouse.NewRepository(clickhouseClient, log)

	// Initialize Postgres client
	pgClient, err := postgres.NewClient(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to create Postgres client", zap.Error(err))
	}
	defer func(pgClient *postgres.Client) {
		if err := pgClient.Close(); err != nil {
			log.Error("Failed to close Postgres client", zap.Error(err))
		}
	}(pgClient)
	campaigns := postgres.NewCampaignRegistry(pgClient, log)
	results := postgres.NewResultStore(pgClient, log)

	checks := map[string]service.Pinger{
		"clickhouse": events,
		"postgres":   pgClient,
	}

	// Initialize dedup index
	var dedupIndex normalizer.DedupIndex
	if cfg.Valkey.Enabled {
		valkeyIndex, err := dedup.NewValkeyIndex(&cfg.Valkey, log)
		if err != nil {
			log.Fatal("Failed to create Valkey dedup index", zap.Error(err))
		}
		defer func(valkeyIndex *dedup.ValkeyIndex) {
			if err := valkeyIndex.Close(); err != nil {
				log.Error("Failed to close Valkey client", zap.Error(err))
			}
		}(valkeyIndex)
		dedupIndex = valkeyIndex
		checks["valkey"] = valkeyIndex
	} else {
		log.Warn("Valkey disabled, using in-memory dedup index")
		dedupIndex = dedup.NewMemoryIndex()
	}

	norm := normalizer.New(campaigns, dedupIndex, normalizer.Config{
		DedupTTL:     cfg.Attribution.DedupTTL,
		MaxClockSkew: time.Second,
	}, log)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize ROI publisher
	roiPublisher, err := kafka.NewPublisher(&cfg.Kafka, log)
	if err != nil {
		log.Fatal("Failed to create Kafka publisher", zap.Error(err))
	}
	defer func(roiPublisher kafka.ROIPublisher) {
		if err := roiPublisher.Close(); err != nil {
			log.Error("Failed to close Kafka publisher", zap.Error(err))
		}
	}(roiPublisher)

	// Initialize attribution pipeline
	p, err := pipeline.New(&cfg.Attribution, pipeline.Stores{
		Events:    events,
		Campaigns: campaigns,
		Results:   results,
	}, roiPublisher, m, log)
	if err != nil {
		log.Fatal("Failed to create attribution pipeline", zap.Error(err))
	}

	// Initialize attribution service
	attributionService := service.NewAttributionService(service.Dependencies{
		Normalizer: norm,
		Publisher:  sqsClient,
		ROIs:       results,
		Pipeline:   p,
		Checks:     checks,
	}, cfg.Attribution.ROIStaleness, m, log)

	// Initialize handler
	h := handler.NewHandler(attributionService, registry, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
