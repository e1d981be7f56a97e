package handlers

import (
	"net/http"

	"github.com/agentstation/matchrules/internal/server/response"
	"github.com/agentstation/matchrules/pkg/compare"
)

// CompareRequest is the POST /api/v1/sessions/{id}/compare body. It selects
// the live comparison of the session.
type CompareRequest struct {
	First  string `json:"first" validate:"required"`
	Second string `json:"second" validate:"required"`
}

// CompareResponse is a comparison with its category sizes and the keys that
// may be compared.
type CompareResponse struct {
	compare.Result
	Summary compare.Summary `json:"summary"`
	Keys    []string        `json:"keys"`
}

// HandleCompare handles GET /api/v1/sessions/{id}/compare?first=&second=.
// Without parameters it returns the live comparison. Results are cached per
// session version.
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	first := r.URL.Query().Get("first")
	second := r.URL.Query().Get("second")

	if first == "" && second == "" {
		result := s.Comparison()
		response.OK(w, CompareResponse{Result: result, Summary: result.Summary(), Keys: s.ComparisonKeys()})
		return
	}
	if first == "" || second == "" {
		response.BadRequest(w, "Both first and second are required", "")
		return
	}

	version := s.Version()
	result, found := h.cache.Comparison(id, version, first, second)
	if !found {
		var err error
		if result, err = s.Compare(first, second); err != nil {
			response.ErrorFromType(w, err)
			return
		}
		h.cache.StoreComparison(id, version, result)
	}
	response.OK(w, CompareResponse{Result: result, Summary: result.Summary(), Keys: s.ComparisonKeys()})
}

// HandleSelectComparison handles POST /api/v1/sessions/{id}/compare.
func (h *Handlers) HandleSelectComparison(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.session(w, r, id)
	if !ok {
		return
	}
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := s.SelectComparison(req.First, req.Second)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, CompareResponse{Result: result, Summary: result.Summary(), Keys: s.ComparisonKeys()})
}
