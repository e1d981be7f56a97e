package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

func sampleState() *snapshot.State {
	r := rules.MustNew(`{"priority":1,"source":"pump"}`)
	return &snapshot.State{
		Project:       "plant",
		SourceIDField: "id",
		TargetIDField: "id",
		Sources:       []map[string]any{{"id": "s1"}},
		SourceFields:  []string{"id"},
		Targets:       []map[string]any{{"id": "t1"}},
		TargetFields:  []string{"id"},
		MatchSets:     []snapshot.MatchSet{{Name: "default", Matches: []match.Match{match.New("s1", "t1")}}},
		Rules:         []rules.Rule{r},
		DeletedRules:  []rules.Rule{},
		RuleStatus:    map[string]rules.Status{r.Identity(): rules.Confirmed},
	}
}

// exercise runs the Store contract against one backend.
func exercise(t *testing.T, s store.Store) {
	ctx := context.Background()

	t.Run("missing session", func(t *testing.T) {
		_, err := s.Load(ctx, "missing")
		assert.True(t, errors.IsNotFound(err))
		assert.True(t, errors.IsNotFound(s.Delete(ctx, "missing")))
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "b", sampleState()))
		require.NoError(t, s.Save(ctx, "a", sampleState()))

		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "plant", got.Project)
		assert.Equal(t, sampleState().MatchSets, got.MatchSets)
		assert.Equal(t, sampleState().RuleStatus, got.RuleStatus)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "b"))
		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids)
	})

	t.Run("invalid id", func(t *testing.T) {
		assert.True(t, errors.IsValidationError(s.Save(ctx, "../escape", sampleState())))
	})
}

func TestFileStore(t *testing.T) {
	for _, format := range []snapshot.Format{snapshot.FormatJSON, snapshot.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "sessions")
			s, err := store.NewFileStore(dir, format)
			require.NoError(t, err)
			defer s.Close()

			exercise(t, s)
			assert.FileExists(t, filepath.Join(dir, "a."+string(format)))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	exercise(t, s)

	t.Run("saved state is a copy", func(t *testing.T) {
		state := sampleState()
		require.NoError(t, s.Save(context.Background(), "copy", state))
		state.Project = "changed"
		got, err := s.Load(context.Background(), "copy")
		require.NoError(t, err)
		assert.Equal(t, "plant", got.Project)
	})
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MATCHRULES_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MATCHRULES_TEST_REDIS_ADDR not set")
	}
	s, err := store.DialRedis(context.Background(), store.Config{RedisAddr: addr, RedisPrefix: "matchrules-test:" + t.Name() + ":"})
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
	_ = s.Delete(context.Background(), "a")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := store.Open(ctx, store.Config{Backend: store.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = store.Open(ctx, store.Config{Dir: t.TempDir(), Format: "yaml"})
	require.NoError(t, err)
	assert.IsType(t, &store.FileStore{}, s)

	_, err = store.Open(ctx, store.Config{Backend: "etcd"})
	assert.Error(t, err)

	_, err = store.Open(ctx, store.Config{Dir: t.TempDir(), Format: "xml"})
	assert.True(t, errors.IsValidationError(err))
}
