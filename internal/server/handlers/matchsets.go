package handlers

import (
	"net/http"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/pkg/match"
)

// CreateMatchSetRequest is the POST /api/v1/sessions/{id}/matchsets body.
// With Reference set the initial matches are derived from SourceField
// (asset_id by default) and Matches is ignored.
type CreateMatchSetRequest struct {
	Name        string        `json:"name" validate:"required,max=128"`
	Matches     []match.Match `json:"matches,omitempty"`
	Reference   bool          `json:"reference,omitempty"`
	SourceField string        `json:"source_field,omitempty"`
}

// MatchRequest names one match.
type MatchRequest struct {
	SourceID string `json:"sourceId" validate:"required"`
	TargetID string `json:"targetId" validate:"required"`
}

// HandleListMatchSets handles GET /api/v1/sessions/{id}/matchsets.
func (h *Handlers) HandleListMatchSets(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	names := s.MatchSetNames()
	sets := make([]matchrules.MatchSetView, 0, len(names))
	for _, name := range names {
		view, err := s.MatchSet(name)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		sets = append(sets, view)
	}
	response.OK(w, map[string]any{
		"match_sets": sets,
		"count":      len(sets),
	})
}

// HandleCreateMatchSet handles POST /api/v1/sessions/{id}/matchsets.
func (h *Handlers) HandleCreateMatchSet(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req CreateMatchSetRequest
	if !h.decode(w, r, &req) {
		return
	}

	var err error
	if req.Reference {
		err = s.CreateReferenceMatchSet(req.Name, req.SourceField)
	} else {
		err = s.CreateMatchSet(req.Name, req.Matches)
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if !h.persist(r.Context(), w, s) {
		return
	}

	view, err := s.MatchSet(req.Name)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.Created(w, view)
}

// HandleGetMatchSet handles GET /api/v1/sessions/{id}/matchsets/{name}.
func (h *Handlers) HandleGetMatchSet(w http.ResponseWriter, r *http.Request, id, name string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	view, err := s.MatchSet(name)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, view)
}

// HandleAddMatch handles POST /api/v1/sessions/{id}/matchsets/{name}/matches.
func (h *Handlers) HandleAddMatch(w http.ResponseWriter, r *http.Request, id, name string) {
	h.changeMatch(w, r, id, name, true)
}

// HandleRemoveMatch handles DELETE /api/v1/sessions/{id}/matchsets/{name}/matches.
func (h *Handlers) HandleRemoveMatch(w http.ResponseWriter, r *http.Request, id, name string) {
	h.changeMatch(w, r, id, name, false)
}

func (h *Handlers) changeMatch(w http.ResponseWriter, r *http.Request, id, name string, add bool) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req MatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	m := match.New(req.SourceID, req.TargetID)
	var err error
	if add {
		err = s.AddMatch(name, m)
	} else {
		err = s.RemoveMatch(name, m)
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if !h.persist(r.Context(), w, s) {
		return
	}

	view, err := s.MatchSet(name)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, view)
}
