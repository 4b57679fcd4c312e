package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// historyTTL bounds how long a session's recent messages stay cached.
const historyTTL = 24 * time.Hour

// HistoryCache keeps a session's recent transcript in Redis so widget
// reconnects replay instantly without a database round trip.
type HistoryCache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewHistoryCache creates a cache over the given Redis client.
func NewHistoryCache(client *redis.Client, tracer trace.Tracer) *HistoryCache {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("mzansiprolife.internal.conversation.history")
	}
	return &HistoryCache{redis: client, tracer: tracer}
}

// Save replaces the cached history for a session.
func (c *HistoryCache) Save(ctx context.Context, sessionID string, history []TranscriptMessage) error {
	ctx, span := c.tracer.Start(ctx, "conversation.cache_save")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(sessionID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to cache history: %w", err)
	}
	return nil
}

// Load returns the cached history, or nil without error on a cache miss.
func (c *HistoryCache) Load(ctx context.Context, sessionID string) ([]TranscriptMessage, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.cache_load")
	defer span.End()

	data, err := c.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load cached history: %w", err)
	}

	var history []TranscriptMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode cached history: %w", err)
	}
	return history, nil
}

// Drop removes a session's cached history.
func (c *HistoryCache) Drop(ctx context.Context, sessionID string) error {
	ctx, span := c.tracer.Start(ctx, "conversation.cache_drop")
	defer span.End()

	if err := c.redis.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to drop cached history: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}
