package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/discovery"
	"github.com/sells-group/suplook/internal/lead"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/pipeline"
	"github.com/sells-group/suplook/internal/store"
)

func (s *Server) enrich(w http.ResponseWriter, r *http.Request) {
	var rest model.Restaurant
	if err := s.decode(r, &rest, false); err != nil {
		writeError(w, r, err)
		return
	}
	l := s.deps.Runner.Enrich(r.Context(), rest, "")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": l})
}

type batchResponse struct {
	Success bool `json:"success"`
	*pipeline.BatchResult
}

func (s *Server) enrichBatch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BatchRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Runner.RunBatch(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, BatchResult: res})
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Found   int  `json:"found"`
	*pipeline.BatchResult
}

// scrapePlaces discovers restaurants by zip code and enriches them as one
// stored batch.
func (s *Server) scrapePlaces(w http.ResponseWriter, r *http.Request) {
	if s.deps.Finder == nil {
		writeError(w, r, discovery.ErrMapProviderDisabled)
		return
	}
	var q discovery.Query
	if err := s.decode(r, &q, false); err != nil {
		writeError(w, r, err)
		return
	}
	found, err := s.deps.Finder.Find(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(found) == 0 {
		writeJSON(w, http.StatusOK, scrapeResponse{Success: true, BatchResult: &pipeline.BatchResult{Leads: []model.Lead{}}})
		return
	}
	res, err := s.deps.Runner.RunBatch(r.Context(), pipeline.BatchRequest{Restaurants: found, BatchSize: len(found)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scrapeResponse{Success: true, Found: len(found), BatchResult: res})
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	var filter store.LeadFilter
	if v := r.URL.Query().Get("graduated"); v != "" {
		g, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, eris.Wrapf(errInvalidBody, "api: graduated=%q", v))
			return
		}
		filter.Graduated = &g
	}
	res, err := s.deps.Leads.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createLeadsRequest struct {
	Leads []model.Lead `json:"leads" validate:"required"`
}

type createLeadsResponse struct {
	Success bool `json:"success"`
	*lead.CreateResult
}

func (s *Server) createLeads(w http.ResponseWriter, r *http.Request) {
	var req createLeadsRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Leads.CreateBatch(r.Context(), req.Leads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createLeadsResponse{Success: true, CreateResult: res})
}

func (s *Server) updateLead(w http.ResponseWriter, r *http.Request) {
	var p lead.Patch
	if err := s.decode(r, &p, false); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Leads.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": l})
}

type graduateResponse struct {
	Success bool `json:"success"`
	*lead.GraduateResult
}

func (s *Server) graduateLead(w http.ResponseWriter, r *http.Request) {
	var req lead.GraduateRequest
	if err := s.decode(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Leads.Graduate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graduateResponse{Success: true, GraduateResult: res})
}

type graduateAllResponse struct {
	Success bool `json:"success"`
	*lead.GraduateAllResult
}

func (s *Server) graduateAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Leads.GraduateAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graduateAllResponse{Success: true, GraduateAllResult: res})
}

// recordOutcome stores the field result and mirrors it to the lead's CRM
// record. A CRM failure is logged; the local outcome stands.
func (s *Server) recordOutcome(w http.ResponseWriter, r *http.Request) {
	var req lead.OutcomeRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.deps.Leads.RecordOutcome(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Pusher.SyncOutcome(r.Context(), *l); err != nil {
		zap.L().Warn("api: sync outcome to salesforce", zap.String("lead_id", l.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": l})
}

func (s *Server) deleteLead(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.deps.Leads.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "remaining": remaining})
}

func (s *Server) deleteAllLeads(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Leads.DeleteAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}
