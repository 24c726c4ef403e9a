package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

// Redis key layout
const (
	redisStateTTL      = 24 * time.Hour
	redisSummaryChan   = "fleet:trucks:days"
	redisTruckStateFmt = "truck:%03d:state"
)

// RedisPublisher keeps the latest day summary of each truck in a hash and
// announces it on a pub/sub channel
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects and pings
func NewRedisPublisher(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

// summaryFields flattens a summary into hash fields
func summaryFields(s DaySummary) map[string]interface{} {
	return map[string]interface{}{
		"truck_id":       s.TruckID,
		"engine_type":    s.EngineType,
		"day_index":      s.DayIndex,
		"windows":        s.Windows,
		"faulty_windows": s.FaultyWindows,
		"max_t3":         s.MaxT3,
		"max_acc1_rms":   s.MaxAcc1RMS,
		"fault_mode":     s.EndLabel.FaultMode,
		"fault_severity": s.EndLabel.FaultSeverity,
		"rul_hours":      s.EndLabel.StoredRUL(),
		"path_a_label":   s.EndLabel.PathALabel,
	}
}

func (r *RedisPublisher) PublishDay(ctx context.Context, rec storage.DayRecord) error {
	summary := Summarize(rec)
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	key := fmt.Sprintf(redisTruckStateFmt, rec.TruckID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, summaryFields(summary))
	pipe.Expire(ctx, key, redisStateTTL)
	pipe.Publish(ctx, redisSummaryChan, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
