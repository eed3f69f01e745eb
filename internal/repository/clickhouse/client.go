package clickhouse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
)

const (
	dialTimeout = 5 * time.Second
	// recompute reads a whole campaign's events in one query
	maxQuerySeconds = 120
)

// Client owns the connection to the attribution event store
type Client struct {
	conn driver.Conn
	cfg  *config.ClickHouse
	log  *zap.Logger
}

// NewClient opens and verifies a ClickHouse connection
func NewClient(ctx context.Context, cfg *config.ClickHouse, log *zap.Logger) (*Client, error) {
	opts, err := connOptions(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("Connecting to event store",
		zap.Strings("addr", opts.Addr),
		zap.String("database", cfg.Database),
		zap.Bool("use_tls", cfg.UseTLS),
		zap.Int("retention_days", cfg.RetentionDays))

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Error("Failed to connect to ClickHouse", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*dialTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		log.Error("Failed to ping ClickHouse", zap.Error(err))
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Info("Event store connection established")
	return &Client{conn: conn, cfg: cfg, log: log}, nil
}

// connOptions maps the service configuration onto driver options
func connOptions(cfg *config.ClickHouse) (*clickhouse.Options, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, errors.New("CLICKHOUSE_HOST and CLICKHOUSE_PORT are required")
	}
	if cfg.Database == "" {
		return nil, errors.New("CLICKHOUSE_DB is required")
	}

	opts := &clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": maxQuerySeconds,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:      dialTimeout,
		MaxOpenConns:     cfg.MaxOpenConns,
		MaxIdleConns:     cfg.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
	if cfg.UseTLS {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() driver.Conn {
	return c.conn
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		c.log.Error("Error closing ClickHouse connection", zap.Error(err))
		return err
	}
	c.log.Info("Event store connection closed")
	return nil
}
