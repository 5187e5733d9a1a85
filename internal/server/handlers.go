package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/recommend"
)

// RecommendRequest is the body of POST /api/recommend. Unset margins take
// the defaults, unset weights take the default weights.
type RecommendRequest struct {
	Category      string                `json:"category"`
	Voltage       float64               `json:"voltage"`
	Current       float64               `json:"current"`
	VoltageMargin *float64              `json:"voltage_margin,omitempty"`
	CurrentMargin *float64              `json:"current_margin,omitempty"`
	Constraints   component.Constraints `json:"constraints"`
	Weights       *component.Weights    `json:"weights,omitempty"`
	Vendors       []string              `json:"vendors,omitempty"`
	Top           *int                  `json:"top,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Debugf("writing response: %v", err)
	}
}

func (s *Server) query(req RecommendRequest) (recommend.Query, error) {
	category, err := component.ParseCategory(req.Category)
	if err != nil {
		return recommend.Query{}, err
	}
	reqs := component.NewRequirements(category, req.Voltage, req.Current)
	if req.VoltageMargin != nil {
		reqs.VoltageMargin = *req.VoltageMargin
	}
	if req.CurrentMargin != nil {
		reqs.CurrentMargin = *req.CurrentMargin
	}
	reqs.Constraints = req.Constraints

	q := recommend.Query{Requirements: reqs, Vendors: req.Vendors, Top: s.DefaultTop}
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			return recommend.Query{}, err
		}
		q.Weights = *req.Weights
	}
	if req.Top != nil {
		q.Top = *req.Top
	}
	return q, nil
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	q, err := s.query(req)
	if err == nil {
		var res *recommend.Result
		res, err = s.Service.Recommend(r.Context(), q)
		if err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	var cfgErr *component.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: cfgErr.Reason, Field: cfgErr.Field})
	case errors.Is(err, recommend.ErrNoCandidatesAvailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		utils.Log.Errorf("recommend: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

type InvalidateRequest struct {
	Pattern string `json:"pattern"`
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Pattern == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pattern is required", Field: "pattern"})
		return
	}

	n, err := s.Service.InvalidateCache(r.Context(), req.Pattern)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"vendors": s.Service.Vendors()})
}
