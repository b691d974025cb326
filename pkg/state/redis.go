package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"botcore/pkg/logger"
)

// maxTxRetries bounds optimistic retries of Update under contention.
const maxTxRetries = 8

// RedisStore keeps each document as a Redis string under a namespace
// prefix, so several bots can share one database.
type RedisStore struct {
	log       *logger.Logger
	client    *redis.Client
	namespace string
}

// DialRedis connects to Redis and checks the connection with PING.
func DialRedis(ctx context.Context, log *logger.Logger, opts *redis.Options, namespace string) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	log.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("namespace", namespace))

	return &RedisStore{log: log, client: client, namespace: namespace}, nil
}

func (s *RedisStore) key(k string) string {
	return s.namespace + k
}

// Get implements KV.
func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

// Set implements KV.
func (s *RedisStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("state %s: invalid JSON document", key)
	}
	if err := s.client.Set(ctx, s.key(key), []byte(doc), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements KV.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n > 0, nil
}

// Keys implements KV using SCAN.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Update implements KV with WATCH/MULTI. fn may run more than once when
// another client touches key concurrently.
func (s *RedisStore) Update(ctx context.Context, key string, fn func(doc json.RawMessage, ok bool) (json.RawMessage, error)) error {
	full := s.key(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		ok := err == nil
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		next, err := fn(current, ok)
		if err != nil {
			return err
		}
		if next != nil && !json.Valid(next) {
			return fmt.Errorf("state %s: invalid JSON document", key)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, full)
			} else {
				pipe.Set(ctx, full, []byte(next), 0)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, full)
		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("Retrying contended update", zap.String("key", key), zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: %w", key, redis.TxFailedErr)
}

// Close implements KV.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
