package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const maxAppendRetries = 5

// RedisStore keeps each record as a Redis list of JSON entries, so progress
// written by one process is visible to every API replica.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedisStore parses url and connects. The connection is verified with PING.
func NewRedisStore(ctx context.Context, url, keyPrefix string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}, nil
}

func (s *RedisStore) key(variant string) string {
	return s.keyPrefix + variant
}

func (s *RedisStore) Reset(ctx context.Context, variant string) error {
	if err := s.client.Del(ctx, s.key(variant)).Err(); err != nil {
		return fmt.Errorf("failed to reset progress for %s: %w", variant, err)
	}
	return nil
}

// Append uses WATCH on the list so the ordering check and the push are atomic.
func (s *RedisStore) Append(ctx context.Context, variant string, e Entry) error {
	key := s.key(variant)
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, key, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var last Entry
			if err := json.Unmarshal([]byte(raw), &last); err != nil {
				return fmt.Errorf("corrupt progress entry for %s: %w", variant, err)
			}
			if err := checkOrder(last, true, e); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, payload)
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		s.logger.Debug("progress append raced, retrying", "variant", variant, "attempt", i+1)
	}
	if err != nil {
		return fmt.Errorf("failed to append progress for %s: %w", variant, err)
	}
	return nil
}

func (s *RedisStore) Read(ctx context.Context, variant string) (Record, error) {
	rec := Record{Variant: variant}

	raws, err := s.client.LRange(ctx, s.key(variant), 0, -1).Result()
	if err != nil {
		return rec, fmt.Errorf("failed to read progress for %s: %w", variant, err)
	}

	rec.Entries = make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("skipping corrupt progress entry", "variant", variant, "error", err)
			continue
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rec, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
