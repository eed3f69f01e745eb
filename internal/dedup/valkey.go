package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
)

// ValkeyIndex is a dedup index shared by every API instance. Claims use
// SET NX so concurrent submissions of one key resolve to a single winner.
type ValkeyIndex struct {
	client valkey.Client
	prefix string
	log    *zap.Logger
}

// NewValkeyIndex connects to Valkey
func NewValkeyIndex(cfg *config.Valkey, log *zap.Logger) (*ValkeyIndex, error) {
	log.Info("Connecting to Valkey",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB))

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		log.Error("Failed to connect to Valkey", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	log.Info("Valkey connection established successfully")
	return &ValkeyIndex{client: client, prefix: cfg.KeyPrefix, log: log}, nil
}

// Claim stores eventID under key unless the key already exists
func (v *ValkeyIndex) Claim(ctx context.Context, key, eventID string, ttl time.Duration) (string, bool, error) {
	k := v.prefix + key

	set := v.client.B().Set().Key(k).Value(eventID).Nx().ExSeconds(ttlSeconds(ttl)).Build()
	err := v.client.Do(ctx, set).Error()
	if err == nil {
		return eventID, true, nil
	}
	if !valkey.IsValkeyNil(err) {
		return "", false, fmt.Errorf("failed to set dedup key: %w", err)
	}

	existing, err := v.client.Do(ctx, v.client.B().Get().Key(k).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			// expired between SET and GET
			return v.Claim(ctx, key, eventID, ttl)
		}
		return "", false, fmt.Errorf("failed to read dedup key: %w", err)
	}
	return existing, false, nil
}

// ttlSeconds rounds ttl down to whole seconds, at least one. EX 0 is rejected
// by the server.
func ttlSeconds(ttl time.Duration) int64 {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Release removes key
func (v *ValkeyIndex) Release(ctx context.Context, key string) error {
	if err := v.client.Do(ctx, v.client.B().Del().Key(v.prefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete dedup key: %w", err)
	}
	return nil
}

// Ping checks if the Valkey connection is alive
func (v *ValkeyIndex) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close closes the Valkey connection
func (v *ValkeyIndex) Close() error {
	v.log.Info("Closing Valkey connection")
	v.client.Close()
	return nil
}
