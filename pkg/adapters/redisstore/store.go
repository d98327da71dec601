// Package redisstore persists build state in Redis, for builds that share
// state across machines.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/kraken-build/kraken/pkg/ports"
	"github.com/kraken-build/kraken/pkg/system"
)

// Store implements ports.BuildStateStore on Redis. Each state is a JSON
// value; an index sorted set tracks the known names so List does not need a
// SCAN.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithTTL expires states after the given duration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store talking to the given Redis address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "kraken:state:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string { return s.prefix + name }
func (s *Store) indexKey() string       { return s.prefix + "index" }

func (s *Store) Save(ctx context.Context, name string, state *system.BuildState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state %q: %w", name, err)
	}

	// Index score is the expiry time, so List can prune lazily. No TTL
	// means effectively never.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(name), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving state to redis: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, name string) (*system.BuildState, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ports.ErrStateNotFound
		}
		return nil, fmt.Errorf("loading state from redis: %w", err)
	}
	var state system.BuildState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("unmarshaling state %q: %w", name, err)
	}
	return &state, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("pruning expired states: %w", err)
	}
	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing states: %w", err)
	}
	return names, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
