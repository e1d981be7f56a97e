package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/rules"
)

// GenerateRequest is the POST /api/v1/sessions/{id}/rules/generate body.
// An empty MatchSet means the default set.
type GenerateRequest struct {
	MatchSet string `json:"match_set,omitempty"`
}

// StatusRequest is the PUT /api/v1/sessions/{id}/rules/{index}/status body.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Unhandled Confirmed Deleted"`
}

// AddRulesRequest is the POST /api/v1/sessions/{id}/rules body. Hard resets
// the status of known rules back to Unhandled.
type AddRulesRequest struct {
	Rules []json.RawMessage `json:"rules" validate:"required,min=1"`
	Hard  bool              `json:"hard,omitempty"`
}

// HandleListRules handles GET /api/v1/sessions/{id}/rules.
func (h *Handlers) HandleListRules(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	list := s.Rules()
	response.OK(w, map[string]any{
		"rules":         list,
		"count":         len(list),
		"deleted_rules": s.DeletedRules(),
		"change_label":  s.ChangeLabel(),
		"state":         s.State(),
	})
}

// HandleGetRule handles GET /api/v1/sessions/{id}/rules/{index}.
func (h *Handlers) HandleGetRule(w http.ResponseWriter, r *http.Request, id, index string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	i, ok := parseIndex(w, index)
	if !ok {
		return
	}
	view, err := s.Rule(i)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, view)
}

// HandleGenerateRules handles POST /api/v1/sessions/{id}/rules/generate.
// The call blocks until the rules are generated and applied.
func (h *Handlers) HandleGenerateRules(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req GenerateRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	if req.MatchSet == "" {
		req.MatchSet = constants.DefaultMatchSet
	}

	report, err := s.GenerateRules(r.Context(), req.MatchSet)
	h.finishApply(w, r, s, matchrules.OpGenerateRules, report, err)
}

// HandleApplyChanges handles POST /api/v1/sessions/{id}/rules/apply.
func (h *Handlers) HandleApplyChanges(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	report, err := s.ApplyChanges(r.Context())
	h.finishApply(w, r, s, matchrules.OpApplyChanges, report, err)
}

// HandleAddRules handles POST /api/v1/sessions/{id}/rules.
func (h *Handlers) HandleAddRules(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req AddRulesRequest
	if !h.decode(w, r, &req) {
		return
	}

	rs := make([]rules.Rule, 0, len(req.Rules))
	for i, raw := range req.Rules {
		rule, err := rules.New(raw)
		if err != nil {
			response.BadRequest(w, "Invalid rule", "rules["+strconv.Itoa(i)+"]: "+err.Error())
			return
		}
		rs = append(rs, rule)
	}

	report, err := s.AddRules(r.Context(), rs, req.Hard)
	h.finishApply(w, r, s, matchrules.OpAddRules, report, err)
}

// finishApply persists the session after a generate, apply or add call.
// Failed calls may still have changed the session, so it is saved either way.
func (h *Handlers) finishApply(w http.ResponseWriter, r *http.Request, s *matchrules.Session, op string, report matchrules.ApplyReport, err error) {
	if err != nil {
		if !errors.IsBusy(err) && !errors.IsNoChanges(err) {
			_ = h.sessions.Save(r.Context(), s)
		}
		h.logger.Warn().Err(err).Str("session_id", s.ID()).Str("operation", op).Msg("Rule operation failed")
		response.ErrorFromType(w, err)
		return
	}
	if !h.persist(r.Context(), w, s) {
		return
	}
	response.OK(w, report)
}

// HandleSetRuleStatus handles PUT /api/v1/sessions/{id}/rules/{index}/status.
func (h *Handlers) HandleSetRuleStatus(w http.ResponseWriter, r *http.Request, id, index string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	i, ok := parseIndex(w, index)
	if !ok {
		return
	}
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := s.SetRuleStatus(i, rules.Status(req.Status)); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if !h.persist(r.Context(), w, s) {
		return
	}

	view, err := s.Rule(i)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"rule":         view,
		"change_label": s.ChangeLabel(),
	})
}

func parseIndex(w http.ResponseWriter, s string) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		response.BadRequest(w, "Invalid rule index", "index must be a non-negative integer")
		return 0, false
	}
	return i, true
}
