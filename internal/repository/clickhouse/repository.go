package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

const defaultRetentionDays = 395

// Repository implements EventRepository for ClickHouse
type Repository struct {
	client        *Client
	retentionDays int
	log           *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	retention := defaultRetentionDays
	if client.cfg != nil && client.cfg.RetentionDays > 0 {
		retention = client.cfg.RetentionDays
	}
	return &Repository{
		client:        client,
		retentionDays: retention,
		log:           log,
	}
}

// schemaQuery builds the attribution_events DDL. Events are append-only; the
// TTL on occurred_at is the only deletion path.
func schemaQuery(retentionDays int) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS attribution_events (
		event_id String,
		campaign_id String,
		episode_id String,
		occurred_at DateTime64(3, 'UTC'),
		method LowCardinality(String),
		listener_key String,
		conversion_value Nullable(Float64),
		supersedes String,
		user_id String,
		email_hash String,
		customer_id String,
		device_fingerprint String,
		ip_address String,
		segment LowCardinality(String),
		raw_payload String,
		ingested_at DateTime64(3, 'UTC'),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (campaign_id, event_id)
	ORDER BY (campaign_id, event_id)
	PARTITION BY toYYYYMM(occurred_at)
	TTL toDateTime(occurred_at) + INTERVAL %d DAY
	SETTINGS index_granularity = 8192
	`, retentionDays)
}

// InitSchema initializes the ClickHouse schema with ReplacingMergeTree engine
func (r *Repository) InitSchema(ctx context.Context) error {
	if err := r.client.Conn().Exec(ctx, schemaQuery(r.retentionDays)); err != nil {
		return fmt.Errorf("failed to create attribution_events table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully",
		zap.Int("retention_days", r.retentionDays))
	return nil
}

// InsertBatch inserts a batch of events into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, events []*domain.AttributionEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO attribution_events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	version := uint64(time.Now().UnixNano())
	insertedCount := 0
	for _, event := range events {
		row, err := toRow(event, version)
		if err != nil {
			return 0, err
		}

		err = batch.Append(
			row.EventID,
			row.CampaignID,
			row.EpisodeID,
			row.OccurredAt,
			row.Method,
			row.ListenerKey,
			row.ConversionValue,
			row.Supersedes,
			row.UserID,
			row.EmailHash,
			row.CustomerID,
			row.DeviceFingerprint,
			row.IPAddress,
			row.Segment,
			row.RawPayload,
			row.IngestedAt,
			row.Version,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// ListCampaignEvents returns every stored event of a campaign ordered by occurred_at
func (r *Repository) ListCampaignEvents(ctx context.Context, campaignID string) ([]*domain.AttributionEvent, error) {
	query := `
		SELECT
			event_id, campaign_id, episode_id, occurred_at, method, listener_key,
			conversion_value, supersedes, user_id, email_hash, customer_id,
			device_fingerprint, ip_address, segment, raw_payload, ingested_at, version
		FROM attribution_events FINAL
		WHERE campaign_id = ?
		ORDER BY occurred_at, event_id
	`

	rows, err := r.client.Conn().Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign events: %w", err)
	}
	defer func(rows driver.Rows) {
		err := rows.Close()
		if err != nil {
			r.log.Error("Failed to close campaign event rows", zap.Error(err))
		}
	}(rows)

	var events []*domain.AttributionEvent
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(
			&row.EventID,
			&row.CampaignID,
			&row.EpisodeID,
			&row.OccurredAt,
			&row.Method,
			&row.ListenerKey,
			&row.ConversionValue,
			&row.Supersedes,
			&row.UserID,
			&row.EmailHash,
			&row.CustomerID,
			&row.DeviceFingerprint,
			&row.IPAddress,
			&row.Segment,
			&row.RawPayload,
			&row.IngestedAt,
			&row.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign event row: %w", err)
		}

		event, err := row.toEvent()
		if err != nil {
			r.log.Warn("Skipping undecodable event",
				zap.String("event_id", row.EventID),
				zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign event rows: %w", err)
	}

	return events, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
