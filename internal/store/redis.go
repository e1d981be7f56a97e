package store

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/logging"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// DefaultRedisPrefix namespaces the keys written by RedisStore.
const DefaultRedisPrefix = "matchrules:"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps JSON snapshots under <prefix>session:<id> and the set of
// ids under <prefix>sessions.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// DialRedis connects to cfg.RedisAddr and checks the connection.
func DialRedis(ctx context.Context, cfg Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, constants.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.NewConfigError("store", "failed to connect to Redis at "+cfg.RedisAddr, err)
	}

	logging.FromContext(ctx).Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return NewRedisStore(rdb, cfg.RedisPrefix), nil
}

func (s *RedisStore) key(id string) string { return s.prefix + "session:" + id }

func (s *RedisStore) index() string { return s.prefix + "sessions" }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, id string, state *snapshot.State) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := snapshot.Marshal(state, snapshot.FormatJSON)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(id), data, 0)
		pipe.SAdd(ctx, s.index(), id)
		return nil
	})
	return errors.WrapResource("save", "session", id, err)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (*snapshot.State, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.NewNotFoundError("session", id)
	}
	if err != nil {
		return nil, errors.WrapResource("load", "session", id, err)
	}
	return snapshot.Unmarshal(data, snapshot.FormatJSON)
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.index(), id)
		return nil
	})
	if err != nil {
		return errors.WrapResource("delete", "session", id, err)
	}
	if del.Val() == 0 {
		return errors.NewNotFoundError("session", id)
	}
	return nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.index()).Result()
	if err != nil {
		return nil, errors.WrapResource("list", "session", "", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
