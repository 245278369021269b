// Package api serves the operator HTTP surface: enrichment, lead review,
// outcome tracking, stats, and CRM push.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/correction"
	"github.com/sells-group/suplook/internal/crm"
	"github.com/sells-group/suplook/internal/discovery"
	"github.com/sells-group/suplook/internal/lead"
	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/pipeline"
	"github.com/sells-group/suplook/internal/store"
	"github.com/sells-group/suplook/internal/vision"
)

// ServiceName is reported by /health.
const ServiceName = "SupLook Vision AI Server"

// maxBodyBytes bounds request bodies; uploaded images arrive base64 encoded.
const maxBodyBytes = 20 << 20

var errInvalidBody = errors.New("invalid request body")

// Status reports which optional integrations are configured.
type Status struct {
	AnthropicConfigured  bool
	GoogleConfigured     bool
	YelpConfigured       bool
	JinaConfigured       bool
	SalesforceConfigured bool
	// GoogleKey is handed to the browser UIs for client-side map lookups.
	GoogleKey string
}

// Deps are the services behind the routes.
type Deps struct {
	AuthKey     string
	AdminKey    string
	Status      Status
	Catalog     *catalog.Catalog
	Corrections *correction.Service
	Leads       *lead.Service
	Runner      *pipeline.Runner
	Finder      *discovery.Finder
	Pusher      *crm.Pusher
	Metrics     *metrics.Pipeline
	// PhotoURL resolves a map-provider photo reference; nil when the map
	// provider is not configured.
	PhotoURL func(photoName string, maxWidth int) string
}

// Server holds the HTTP handlers.
type Server struct {
	deps     Deps
	validate *validator.Validate
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Builtin()
	}
	return &Server{deps: deps, validate: validator.New()}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Post("/login", s.login)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)

		r.Get("/config", s.config)
		r.Get("/catalog", s.catalog)

		r.Post("/analyze/image", s.analyzeImage)
		r.Post("/analyze/url", s.analyzeURL)
		r.Post("/analyze/google-photo", s.analyzePlacesPhoto)
		r.Post("/feedback", s.feedback)
		r.Get("/corrections", s.corrections)

		r.Post("/enrich", s.enrich)
		r.Post("/enrich/batch", s.enrichBatch)
		r.Post("/scrape/places", s.scrapePlaces)

		r.Get("/leads", s.listLeads)
		r.Post("/leads", s.createLeads)
		r.Post("/leads/graduate-all", s.graduateAll)
		r.Put("/leads/{id}", s.updateLead)
		r.Post("/leads/{id}/graduate", s.graduateLead)
		r.Post("/leads/{id}/outcome", s.recordOutcome)
		r.Delete("/leads/{id}", s.deleteLead)

		r.Get("/stats", s.stats)
		r.Get("/stats/outcomes", s.outcomeStats)
		r.Get("/stats/accuracy", s.accuracyStats)

		r.Get("/salesforce", s.salesforceQueue)
		r.Post("/salesforce", s.salesforcePush)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Delete("/leads", s.deleteAllLeads)
			r.Delete("/corrections", s.clearCorrections)
		})
	})
	return r
}

type ctxKey int

const ctxAdmin ctxKey = iota

// requireKey accepts the team or admin key from the x-api-key header or the
// key query parameter.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := apiKey(r)
		switch {
		case key == "":
			writeJSON(w, http.StatusUnauthorized, errorBody("Missing API key. Add x-api-key header."))
			return
		case key != s.deps.AuthKey && key != s.deps.AdminKey:
			writeJSON(w, http.StatusForbidden, errorBody("Invalid API key"))
			return
		}
		ctx := context.WithValue(r.Context(), ctxAdmin, key == s.deps.AdminKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin, _ := r.Context().Value(ctxAdmin).(bool); !admin {
			writeJSON(w, http.StatusForbidden, errorBody("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	return r.URL.Query().Get("key")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// decode reads a JSON body into v and validates it. An empty body leaves v
// at its zero value when allowEmpty is set.
func (s *Server) decode(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	switch {
	case errors.Is(err, io.EOF) && allowEmpty:
	case err != nil:
		return eris.Wrapf(errInvalidBody, "api: %v", err)
	}
	if err := s.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return eris.Wrapf(errInvalidBody, "api: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps err to a status code and writes {"error": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidBody),
		errors.Is(err, pipeline.ErrEmptyBatch),
		errors.Is(err, pipeline.ErrInvalidBatch),
		errors.Is(err, pipeline.ErrInvalidImage),
		errors.Is(err, lead.ErrInvalidOutcome),
		errors.Is(err, discovery.ErrNoRegions),
		errors.Is(err, discovery.ErrMapProviderDisabled):
		return http.StatusBadRequest
	case errors.Is(err, vision.ErrDisabled), errors.Is(err, crm.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
