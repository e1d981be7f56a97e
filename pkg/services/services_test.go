package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/match"
	"github.com/agentstation/matchrules/pkg/rules"
	"github.com/agentstation/matchrules/pkg/services"
)

func TestApplyResponseDecoding(t *testing.T) {
	body := `{"items":[{"matches":[{"source":{"id":1,"name":"PT-1"},"target":{"id":"A"}},{"sourceId":"2"}],
		"numberOfMatches":2,"conflicts":[{"ruleIndex":1,"multiplicity":3}],"overlaps":[]}]}`

	var resp services.ApplyResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	assert.Equal(t, 2, item.NumberOfMatches)
	assert.Equal(t, []rules.Relation{{RuleIndex: 1, Multiplicity: 3}}, item.Conflicts)
	require.Len(t, item.Matches, 2)

	m, err := item.Matches[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, match.New("1", "A"), m)

	_, err = item.Matches[1].Decode()
	assert.Error(t, err)
}

func TestNewRawMatch(t *testing.T) {
	raw := services.NewRawMatch(float64(7), "B")
	m, err := raw.Decode()
	require.NoError(t, err)
	assert.Equal(t, match.New("7", "B"), m)

	out, err := json.Marshal([]services.RawMatch{raw, nil})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"source":{"id":7},"target":{"id":"B"}},null]`, string(out))
}

func TestSuggestRequestEncoding(t *testing.T) {
	req := services.SuggestRequest{
		Sources: []map[string]any{{"id": 1, "name": "PT-1"}},
		Targets: []map[string]any{{"id": "A", "name": "pump"}},
		Matches: []services.WireMatch{{SourceID: 1, TargetID: "A"}},
	}
	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sources":[{"id":1,"name":"PT-1"}],"targets":[{"id":"A","name":"pump"}],
		"matches":[{"sourceId":1,"targetId":"A"}]}`, string(out))
}

func TestFuncAdapters(t *testing.T) {
	rule := rules.MustNew(`{"priority":1}`)
	var svc services.Service = struct {
		services.SuggestFunc
		services.ApplyFunc
	}{
		SuggestFunc: func(ctx context.Context, req services.SuggestRequest) (*services.SuggestResponse, error) {
			return &services.SuggestResponse{Rules: []rules.Rule{rule}}, nil
		},
		ApplyFunc: func(ctx context.Context, req services.ApplyRequest) (*services.ApplyResponse, error) {
			return &services.ApplyResponse{Items: make([]services.ApplyItem, len(req.Rules))}, nil
		},
	}

	suggested, err := svc.Suggest(context.Background(), services.SuggestRequest{})
	require.NoError(t, err)
	assert.Equal(t, []rules.Rule{rule}, suggested.Rules)

	applied, err := svc.Apply(context.Background(), services.ApplyRequest{Rules: suggested.Rules})
	require.NoError(t, err)
	assert.Len(t, applied.Items, 1)
}
