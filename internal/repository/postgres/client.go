package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
)

// Client wraps the GORM connection to Postgres
type Client struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewClient opens a GORM connection and migrates the registry and result tables
func NewClient(ctx context.Context, cfg *config.Postgres, log *zap.Logger) (*Client, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("POSTGRES_DSN must be a postgres:// or postgresql:// URL")
	}

	log.Info("Connecting to Postgres")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		log.Error("Failed to connect to Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access Postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Error("Failed to ping Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		return nil, err
	}

	log.Info("Postgres connection established successfully")
	return &Client{db: db, log: log}, nil
}

func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&Campaign{},
		&PromoCode{},
		&PipelineRun{},
		&IdentityCluster{},
		&AttributionPath{},
		&AttributionResult{},
		&CampaignROI{},
	); err != nil {
		return fmt.Errorf("failed to migrate Postgres schema: %w", err)
	}
	return nil
}

// DB returns the underlying GORM handle
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping checks if the Postgres connection is alive
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the Postgres connection
func (c *Client) Close() error {
	c.log.Info("Closing Postgres connection")
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.log.Error("Error closing Postgres connection", zap.Error(err))
		return err
	}
	return nil
}
