package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/logger"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/publisher/kafka"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository/postgres"
)

// env holds the clients a command opened. close releases them in reverse order.
type env struct {
	log     *zap.Logger
	pg      *postgres.Client
	closers []func() error
}

func newEnv() (*env, error) {
	environment := os.Getenv("SERVICE_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}
	log, err := logger.New(environment, "attributionctl")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{log: log}, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("Failed to close client", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

func (e *env) postgres(ctx context.Context) (*postgres.Client, error) {
	if e.pg != nil {
		return e.pg, nil
	}
	var cfg config.Postgres
	if err := config.LoadSection("POSTGRES", &cfg); err != nil {
		return nil, err
	}
	client, err := postgres.NewClient(ctx, &cfg, e.log)
	if err != nil {
		return nil, err
	}
	e.pg = client
	e.closers = append(e.closers, client.Close)
	return client, nil
}

// pipeline wires a pipeline against the configured stores. ROI publishing is
// only enabled when KAFKA_ENABLED is set.
func (e *env) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	var chCfg config.ClickHouse
	if err := config.LoadSection("CLICKHOUSE", &chCfg); err != nil {
		return nil, err
	}
	var kafkaCfg config.Kafka
	if err := config.LoadSection("KAFKA", &kafkaCfg); err != nil {
		return nil, err
	}
	var attrCfg config.Attribution
	if err := config.LoadSection("ATTRIBUTION", &attrCfg); err != nil {
		return nil, err
	}

	pg, err := e.postgres(ctx)
	if err != nil {
		return nil, err
	}

	chClient, err := clickhouse.NewClient(ctx, &chCfg, e.log)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, chClient.Close)

	publisher, err := kafka.NewPublisher(&kafkaCfg, e.log)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, publisher.Close)

	return pipeline.New(&attrCfg, pipeline.Stores{
		Events:    clickhouse.NewRepository(chClient, e.log),
		Campaigns: postgres.NewCampaignRegistry(pg, e.log),
		Results:   postgres.NewResultStore(pg, e.log),
	}, publisher, metrics.NewNop(), e.log)
}
