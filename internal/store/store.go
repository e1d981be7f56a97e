// Package store persists session snapshots. Backends: a directory of snapshot
// files, Redis and process memory.
package store

import (
	"context"
	"regexp"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store saves and loads session snapshots by session id.
type Store interface {
	Save(ctx context.Context, id string, state *snapshot.State) error
	Load(ctx context.Context, id string) (*snapshot.State, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string `mapstructure:"store" validate:"omitempty,oneof=file redis memory"`
	Dir     string `mapstructure:"store_dir"`
	Format  string `mapstructure:"store_format" validate:"omitempty,oneof=json yaml yml"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

// Open returns the backend named by cfg.Backend, the file store by default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		format := snapshot.FormatJSON
		if cfg.Format != "" {
			f, err := snapshot.ParseFormat(cfg.Format)
			if err != nil {
				return nil, err
			}
			format = f
		}
		return NewFileStore(cfg.Dir, format)
	case BackendRedis:
		return DialRedis(ctx, cfg)
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, errors.NewConfigError("store", "unknown backend "+cfg.Backend, nil)
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID refuses ids that are not safe as file names or keys.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return errors.NewValidationError("id", id, "invalid session id")
	}
	return nil
}
