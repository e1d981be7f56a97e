package handlers

import (
	"net/http"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/internal/server/sessions"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

// CreateSessionRequest is the POST /api/v1/sessions body. When State is set
// the session is restored from it and the other fields except ID are ignored.
type CreateSessionRequest struct {
	ID            string          `json:"id,omitempty" validate:"omitempty,max=128"`
	Project       string          `json:"project,omitempty"`
	SourceIDField string          `json:"source_id_field,omitempty"`
	TargetIDField string          `json:"target_id_field,omitempty"`
	State         *snapshot.State `json:"state,omitempty"`
}

// EntitiesRequest is the PUT /api/v1/sessions/{id}/entities body. Omitted
// parts are left unchanged.
type EntitiesRequest struct {
	Sources      []map[string]any `json:"sources,omitempty"`
	Targets      []map[string]any `json:"targets,omitempty"`
	SourceFields []string         `json:"source_fields,omitempty" validate:"omitempty,dive,required"`
	TargetFields []string         `json:"target_fields,omitempty" validate:"omitempty,dive,required"`
}

// SessionResponse describes a session and, on request, its snapshot.
type SessionResponse struct {
	sessions.Summary
	ChangeLabel string          `json:"change_label"`
	Snapshot    *snapshot.State `json:"snapshot,omitempty"`
}

// HandleListSessions handles GET /api/v1/sessions.
func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.List(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"sessions": list,
		"count":    len(list),
	})
}

// HandleCreateSession handles POST /api/v1/sessions.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	s, err := h.sessions.Create(r.Context(), sessions.CreateOptions{
		ID:            req.ID,
		Project:       req.Project,
		SourceIDField: req.SourceIDField,
		TargetIDField: req.TargetIDField,
		State:         req.State,
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.Created(w, SessionResponse{
		Summary:     sessions.Summarize(s),
		ChangeLabel: s.ChangeLabel(),
	})
}

// HandleGetSession handles GET /api/v1/sessions/{id}. The snapshot is
// included unless ?snapshot=false.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	resp := SessionResponse{
		Summary:     sessions.Summarize(s),
		ChangeLabel: s.ChangeLabel(),
	}
	if r.URL.Query().Get("snapshot") != "false" {
		resp.Snapshot = s.Snapshot()
	}
	response.OK(w, resp)
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	h.cache.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetEntities handles PUT /api/v1/sessions/{id}/entities.
func (h *Handlers) HandleSetEntities(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req EntitiesRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := s.SetEntities(matchrules.EntityUpdate{
		Sources:      req.Sources,
		Targets:      req.Targets,
		SourceFields: req.SourceFields,
		TargetFields: req.TargetFields,
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if !h.persist(r.Context(), w, s) {
		return
	}

	response.OK(w, map[string]any{
		"sources":       s.Sources().Len(),
		"targets":       s.Targets().Len(),
		"source_fields": s.SourceFields(),
		"target_fields": s.TargetFields(),
	})
}
