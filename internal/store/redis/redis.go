// Package redis implements store.Store as one Redis hash.
//
// Each store key becomes a field of the hash named by the configured key
// (for example "snippet-picker"), so several machines or containers can share
// one snippet library. Multi-key Set runs inside MULTI/EXEC, which gives the
// same all-or-nothing visibility the file and SQLite stores provide.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/snippet-picker/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every key as a field of a single hash.
type Store struct {
	client *goredis.Client
	hash   string
}

// New connects to addr and verifies the server answers.
func New(ctx context.Context, addr, hash string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", addr, err)
	}
	return &Store{client: client, hash: hash}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if len(keys) == 0 {
		all, err := s.client.HGetAll(ctx, s.hash).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: reading all keys: %w", err)
		}
		result := make(map[string]json.RawMessage, len(all))
		for k, v := range all {
			result[k] = json.RawMessage(v)
		}
		return result, nil
	}

	values, err := s.client.HMGet(ctx, s.hash, keys...).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis: reading keys: %w", err)
	}

	result := make(map[string]json.RawMessage, len(keys))
	for i, v := range values {
		// HMGET answers nil for fields that don't exist.
		str, ok := v.(string)
		if !ok {
			continue
		}
		result[keys[i]] = json.RawMessage(str)
	}
	return result, nil
}

func (s *Store) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	fields := make([]any, 0, len(entries)*2)
	for k, v := range entries {
		fields = append(fields, k, string(v))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.hash, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: writing keys: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.hash, keys...).Err(); err != nil {
		return fmt.Errorf("redis: removing keys: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.hash).Err(); err != nil {
		return fmt.Errorf("redis: clearing: %w", err)
	}
	return nil
}
