package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

func NewClient(cfg common.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Store keeps one JSON document per device under prefix+deviceName, in the
// same shape as the per-device snapshot files: {DeviceName, data,
// last_system_update}.
type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(deviceName string) string {
	return s.prefix + deviceName
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot *models.DeviceSnapshot) error {
	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(snapshot.DeviceName), doc, 0).Err()
}

// LoadSnapshots returns every stored document. Unreadable documents are
// skipped; a document without its own DeviceName takes the name from its key.
func (s *Store) LoadSnapshots(ctx context.Context) ([]models.DeviceSnapshot, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameRedisStore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTSnapshot),
	)

	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	snapshots := make([]models.DeviceSnapshot, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var snapshot models.DeviceSnapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			logger.Warn("Skipped unreadable snapshot", zap.String("key", key), zap.Error(err))
			continue
		}
		if strings.TrimSpace(snapshot.DeviceName) == "" {
			snapshot.DeviceName = strings.TrimPrefix(key, s.prefix)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (s *Store) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		k, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
