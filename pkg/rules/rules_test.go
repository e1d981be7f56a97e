package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
)

func TestNewRule(t *testing.T) {
	t.Run("compacts and keeps key order", func(t *testing.T) {
		r, err := rules.New([]byte(`{ "priority": 2,  "extractors": [ {"field": "name"} ] }`))
		require.NoError(t, err)
		assert.Equal(t, `{"priority":2,"extractors":[{"field":"name"}]}`, r.Identity())
		assert.Equal(t, "2", r.Priority())
	})

	t.Run("differently ordered rules are distinct", func(t *testing.T) {
		a := rules.MustNew(`{"priority":1,"conditions":[]}`)
		b := rules.MustNew(`{"conditions":[],"priority":1}`)
		assert.NotEqual(t, a.Identity(), b.Identity())
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := rules.New([]byte(`[1,2]`))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("no priority", func(t *testing.T) {
		_, err := rules.New([]byte(`{"extractors":[]}`))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := rules.New([]byte(`{"priority":`))
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestRuleCodecs(t *testing.T) {
	r := rules.MustNew(`{"priority":3,"b":1,"a":2}`)

	out, err := json.Marshal([]rules.Rule{r})
	require.NoError(t, err)
	assert.Equal(t, `[{"priority":3,"b":1,"a":2}]`, string(out))

	var back []rules.Rule
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, r.Identity(), back[0].Identity())

	y, err := yaml.Marshal(map[string]any{"rules": []rules.Rule{r}})
	require.NoError(t, err)

	var decoded struct {
		Rules []rules.Rule `yaml:"rules"`
	}
	require.NoError(t, yaml.Unmarshal(y, &decoded))
	require.Len(t, decoded.Rules, 1)
	assert.Equal(t, r.Identity(), decoded.Rules[0].Identity())

	fields, err := r.Fields()
	require.NoError(t, err)
	assert.Equal(t, float64(3), fields["priority"])
}

func TestParseStatus(t *testing.T) {
	for _, st := range rules.Statuses {
		parsed, err := rules.ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	_, err := rules.ParseStatus("Maybe")
	assert.True(t, errors.IsValidationError(err))
}

func TestRelationString(t *testing.T) {
	assert.Equal(t, "Rule#4: 17", rules.Relation{RuleIndex: 4, Multiplicity: 17}.String())
}

func testRules() (rules.Rule, rules.Rule, rules.Rule) {
	return rules.MustNew(`{"priority":1,"id":"a"}`),
		rules.MustNew(`{"priority":2,"id":"b"}`),
		rules.MustNew(`{"priority":3,"id":"c"}`)
}

func TestStoreAddDeduplicates(t *testing.T) {
	a, b, _ := testRules()
	s := rules.NewStore()

	assert.True(t, s.Add(a))
	assert.True(t, s.Add(b))
	statuses := s.StatusMap()

	assert.False(t, s.Add(rules.MustNew(`{"priority":1,"id":"a"}`)))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, statuses, s.StatusMap())
	assert.True(t, s.Uncalculated())
	assert.False(t, s.Add(rules.Rule{}))
}

func TestStoreStatusLifecycle(t *testing.T) {
	a, b, _ := testRules()
	s := rules.NewStore()
	s.Add(a)
	s.Add(b)
	require.NoError(t, s.Commit(s.PlanCleanup(), []rules.Info{{}, {}}))
	assert.False(t, s.Dirty())

	require.NoError(t, s.SetStatus(1, rules.Deleted))
	assert.Equal(t, []string{b.Identity()}, s.PendingDeletions())
	assert.True(t, s.Dirty())

	// undo before apply leaves no trace
	require.NoError(t, s.SetStatus(1, rules.Confirmed))
	assert.Empty(t, s.PendingDeletions())
	assert.False(t, s.Dirty())

	st, err := s.Status(1)
	require.NoError(t, err)
	assert.Equal(t, rules.Confirmed, st)

	assert.True(t, errors.IsNotFound(s.SetStatus(5, rules.Deleted)))
	assert.True(t, errors.IsValidationError(s.SetStatus(0, rules.Status("Maybe"))))
	_, err = s.Status(-1)
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreCleanupCommit(t *testing.T) {
	a, b, c := testRules()
	s := rules.NewStore()
	s.AddAll([]rules.Rule{a, b, c}, false)
	require.NoError(t, s.SetStatus(1, rules.Deleted))

	plan := s.PlanCleanup()
	assert.Equal(t, []rules.Rule{a, c}, plan.Keep)
	assert.Equal(t, []rules.Rule{b}, plan.Remove)

	// planning alone changes nothing
	assert.Equal(t, 3, s.Len())

	err := s.Commit(plan, []rules.Info{{}})
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 3, s.Len())

	infos := []rules.Info{
		{Matches: []match.Match{match.New("1", "A")}, NumberOfMatches: 1},
		{NumberOfMatches: 0, Conflicts: []rules.Relation{{RuleIndex: 0, Multiplicity: 1}}},
	}
	require.NoError(t, s.Commit(plan, infos))
	assert.Equal(t, []rules.Rule{a, c}, s.Rules())
	assert.Equal(t, []rules.Rule{b}, s.Deleted())
	assert.False(t, s.Dirty())
	assert.Equal(t, rules.Deleted, s.StatusOf(b))

	info, ok := s.Info(1)
	require.True(t, ok)
	assert.Equal(t, infos[1], info)

	_, ok = s.Info(2)
	assert.False(t, ok)
}

func TestStoreAddAllHard(t *testing.T) {
	a, b, _ := testRules()

	t.Run("soft add skips deleted rules", func(t *testing.T) {
		s := rules.NewStore()
		s.AddAll([]rules.Rule{a, b}, false)
		require.NoError(t, s.SetStatus(0, rules.Deleted))
		require.NoError(t, s.Commit(s.PlanCleanup(), []rules.Info{{}}))

		assert.Equal(t, 0, s.AddAll([]rules.Rule{a}, false))
		assert.Equal(t, []rules.Rule{b}, s.Rules())
	})

	t.Run("hard add resurrects logged rules", func(t *testing.T) {
		s := rules.NewStore()
		s.AddAll([]rules.Rule{a, b}, false)
		require.NoError(t, s.SetStatus(0, rules.Deleted))
		require.NoError(t, s.Commit(s.PlanCleanup(), []rules.Info{{}}))

		assert.Equal(t, 1, s.AddAll([]rules.Rule{a}, true))
		assert.Equal(t, []rules.Rule{b, a}, s.Rules())
		assert.Equal(t, rules.Unhandled, s.StatusOf(a))
		assert.True(t, s.Uncalculated())
	})

	t.Run("hard add on pending deletion reverts status", func(t *testing.T) {
		s := rules.NewStore()
		s.AddAll([]rules.Rule{a, b}, false)
		require.NoError(t, s.Commit(s.PlanCleanup(), []rules.Info{{}, {}}))
		require.NoError(t, s.SetStatus(0, rules.Deleted))

		assert.Equal(t, 0, s.AddAll([]rules.Rule{a}, true))
		assert.Equal(t, 2, s.Len())
		assert.Empty(t, s.PendingDeletions())
		assert.Equal(t, rules.Unhandled, s.StatusOf(a))
	})
}

func TestStoreRestore(t *testing.T) {
	a, b, c := testRules()
	s := rules.NewStore()

	err := s.Restore([]rules.Rule{a, b, a}, []rules.Rule{c}, map[string]rules.Status{
		b.Identity(): rules.Deleted,
		c.Identity(): rules.Deleted,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []rules.Rule{a, b}, s.Rules())
	assert.Equal(t, []rules.Rule{c}, s.Deleted())
	assert.Equal(t, []string{b.Identity()}, s.PendingDeletions())
	assert.True(t, s.Uncalculated())
	assert.Equal(t, rules.Unhandled, s.StatusOf(a))

	err = s.Restore(nil, nil, map[string]rules.Status{"x": "Bogus"}, nil)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 2, s.Len())
}

func TestStoreRestoreInfo(t *testing.T) {
	a, b, _ := testRules()
	infoA := rules.Info{Matches: []match.Match{match.New("1", "A")}, NumberOfMatches: 1}
	infoB := rules.Info{Matches: []match.Match{match.New("2", "B")}, NumberOfMatches: 1}

	t.Run("complete info is clean", func(t *testing.T) {
		s := rules.NewStore()
		require.NoError(t, s.Restore([]rules.Rule{a, b}, nil, nil, map[string]rules.Info{
			a.Identity(): infoA,
			b.Identity(): infoB,
			"stale":      infoB,
		}))
		assert.False(t, s.Dirty())
		got, ok := s.Info(1)
		require.True(t, ok)
		assert.Equal(t, infoB, got)
		assert.Equal(t, []match.Match{match.New("1", "A"), match.New("2", "B")}, s.Matches())
		assert.Len(t, s.InfoMap(), 2)
	})

	t.Run("missing info is uncalculated", func(t *testing.T) {
		s := rules.NewStore()
		require.NoError(t, s.Restore([]rules.Rule{a, b}, nil, nil, map[string]rules.Info{a.Identity(): infoA}))
		assert.True(t, s.Uncalculated())
		_, ok := s.Info(1)
		assert.False(t, ok)
	})
}
