package api

import (
	"fmt"
	"net/http"

	"github.com/sells-group/suplook/internal/metrics"
)

type loginRequest struct {
	Key string `json:"key" validate:"required"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Level   string `json:"level"`
	Key     string `json:"key"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req, false); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid key"))
		return
	}
	switch req.Key {
	case s.deps.AdminKey:
		writeJSON(w, http.StatusOK, loginResponse{Success: true, Level: "admin", Key: req.Key})
	case s.deps.AuthKey:
		writeJSON(w, http.StatusOK, loginResponse{Success: true, Level: "team", Key: req.Key})
	default:
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid key"))
	}
}

type healthResponse struct {
	Status               string        `json:"status"`
	Service              string        `json:"service"`
	AnthropicConfigured  bool          `json:"anthropicConfigured"`
	GoogleConfigured     bool          `json:"googleConfigured"`
	YelpConfigured       bool          `json:"yelpConfigured"`
	JinaConfigured       bool          `json:"jinaConfigured"`
	SalesforceConfigured bool          `json:"salesforceConfigured"`
	CatalogLoaded        bool          `json:"catalogLoaded"`
	CatalogSource        string        `json:"catalogSource"`
	CatalogProducts      int           `json:"catalogProducts"`
	CorrectionsCount     int           `json:"correctionsCount"`
	Stats                metrics.Stats `json:"stats"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Status
	resp := healthResponse{
		Status:               "ok",
		Service:              ServiceName,
		AnthropicConfigured:  st.AnthropicConfigured,
		GoogleConfigured:     st.GoogleConfigured,
		YelpConfigured:       st.YelpConfigured,
		JinaConfigured:       st.JinaConfigured,
		SalesforceConfigured: st.SalesforceConfigured,
		CatalogLoaded:        s.deps.Catalog.ProductCount() > 0,
		CatalogSource:        string(s.deps.Catalog.Source()),
		CatalogProducts:      s.deps.Catalog.ProductCount(),
	}
	if s.deps.Corrections != nil {
		resp.CorrectionsCount = s.deps.Corrections.Count()
	}
	if s.deps.Metrics != nil {
		resp.Stats = s.deps.Metrics.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Status
	writeJSON(w, http.StatusOK, map[string]any{
		"googleApiKey":    st.GoogleKey,
		"hasAnthropicKey": st.AnthropicConfigured,
		"hasGoogleKey":    st.GoogleConfigured,
		"hasYelpKey":      st.YelpConfigured,
	})
}

func (s *Server) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Data())
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Leads.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"leads": sum}
	if s.deps.Metrics != nil {
		byTier := map[string]int{}
		for tier, n := range s.deps.Metrics.EnrichedByTier() {
			byTier[fmt.Sprintf("tier%d", tier)] = n
		}
		resp["enrichment"] = s.deps.Metrics.Snapshot()
		resp["enrichedByTier"] = byTier
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) outcomeStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Leads.OutcomeStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) accuracyStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Leads.AccuracyStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
