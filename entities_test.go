package matchrules_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/pkg/errors"
)

func TestSetEntities(t *testing.T) {
	t.Run("applies all parts as one change", func(t *testing.T) {
		s := newSession(t, newFakeService())
		before := s.Version()

		err := s.SetEntities(matchrules.EntityUpdate{
			Targets:      []map[string]any{{"id": 20, "name": "Pump 9"}},
			SourceFields: []string{"name"},
			TargetFields: []string{"name"},
		})
		require.NoError(t, err)

		assert.Equal(t, before+1, s.Version())
		assert.Equal(t, len(sources()), s.Sources().Len())
		assert.Equal(t, []string{"20"}, s.Targets().IDs())
		assert.Equal(t, []string{"id", "name"}, s.SourceFields())
		assert.Equal(t, []string{"id", "name"}, s.TargetFields())
	})

	t.Run("invalid targets leave the session unchanged", func(t *testing.T) {
		s := newSession(t, newFakeService())
		require.NoError(t, s.SetTargetFields([]string{"name"}))
		before := s.Version()

		err := s.SetEntities(matchrules.EntityUpdate{
			Sources:      []map[string]any{{"id": 99}},
			Targets:      []map[string]any{{"id": 20}, {"id": 20}},
			SourceFields: []string{"name"},
		})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))

		assert.Equal(t, before, s.Version())
		assert.Equal(t, len(sources()), s.Sources().Len())
		assert.Equal(t, len(targets()), s.Targets().Len())
		assert.Equal(t, []string{"id"}, s.SourceFields())
		assert.Equal(t, []string{"id", "name"}, s.TargetFields())
	})
}

func TestFieldSelectionConcurrentReads(t *testing.T) {
	s := newSession(t, newFakeService())
	fields := [][]string{{"name"}, {"name", "area"}, nil}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f := fields[(i+j)%len(fields)]
				assert.NoError(t, s.SetSourceFields(f))
				assert.NoError(t, s.SetTargetFields(f))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "id", s.SourceFields()[0])
				assert.Equal(t, "id", s.Sources().Fields()[0])
				assert.Equal(t, "id", s.Targets().Fields()[0])
				_ = s.Sources().Reduced()
			}
		}()
	}
	wg.Wait()
}
