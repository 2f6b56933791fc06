package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/marketadvisor/memory"
)

// RedisStore implements memory.Store with one Redis list per session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	maxLen int64
}

var _ memory.Store = (*RedisStore)(nil)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "marketadvisor:"
	TTL      time.Duration // Session expiration, refreshed on every append. Zero keeps sessions forever
	MaxLen   int64         // Messages kept per session, default 1000
}

// NewRedisStore creates a new Redis conversation store
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts)
}

// NewRedisStoreWithClient creates a store over an existing client. The
// connection fields of opts are ignored.
func NewRedisStoreWithClient(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "marketadvisor:"
	}
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
		maxLen: maxLen,
	}
}

func (s *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s:messages", s.prefix, id)
}

// Append pushes messages in one MULTI/EXEC transaction and trims every
// touched session to MaxLen.
func (s *RedisStore) Append(ctx context.Context, msgs ...memory.Message) error {
	var keys []string
	values := make(map[string][]any)
	for _, msg := range msgs {
		if msg.SessionID == "" {
			return memory.ErrEmptySession
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		key := s.sessionKey(msg.SessionID)
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = append(values[key], data)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.RPush(ctx, key, values[key]...)
		pipe.LTrim(ctx, key, -s.maxLen, -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message to redis: %w", err)
	}
	return nil
}

// History returns the last limit messages of a session.
func (s *RedisStore) History(ctx context.Context, sessionID string, limit int) ([]memory.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := s.client.LRange(ctx, s.sessionKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history for session %s: %w", sessionID, err)
	}

	msgs := make([]memory.Message, 0, len(raw))
	for _, r := range raw {
		var m memory.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
