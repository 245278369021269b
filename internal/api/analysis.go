package api

import (
	"net/http"

	"github.com/sells-group/suplook/internal/correction"
	"github.com/sells-group/suplook/internal/model"
)

const defaultPlacesPhotoWidth = 800

type analyzeImageRequest struct {
	ImageBase64    string `json:"imageBase64" validate:"required"`
	MimeType       string `json:"mimeType"`
	RestaurantName string `json:"restaurantName"`
}

type analyzeURLRequest struct {
	ImageURL       string `json:"imageUrl" validate:"required,url"`
	RestaurantName string `json:"restaurantName"`
}

type analyzePlacesPhotoRequest struct {
	PhotoReference string `json:"photoReference" validate:"required"`
	RestaurantName string `json:"restaurantName"`
	MaxWidth       int    `json:"maxWidth" validate:"gte=0,lte=4800"`
}

type analysisResponse struct {
	Success  bool                  `json:"success"`
	Analysis *model.VisionAnalysis `json:"analysis"`
}

func (s *Server) analyzeImage(w http.ResponseWriter, r *http.Request) {
	var req analyzeImageRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.deps.Runner.AnalyzeImage(r.Context(), req.ImageBase64, req.MimeType, req.RestaurantName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Success: true, Analysis: a})
}

func (s *Server) analyzeURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.deps.Runner.AnalyzeURL(r.Context(), req.ImageURL, req.RestaurantName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Success: true, Analysis: a})
}

// analyzePlacesPhoto resolves a map-provider photo resource name and
// classifies the image behind it.
func (s *Server) analyzePlacesPhoto(w http.ResponseWriter, r *http.Request) {
	if s.deps.PhotoURL == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("Google API key not configured"))
		return
	}
	var req analyzePlacesPhotoRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	width := req.MaxWidth
	if width == 0 {
		width = defaultPlacesPhotoWidth
	}
	a, err := s.deps.Runner.AnalyzeURL(r.Context(), s.deps.PhotoURL(req.PhotoReference, width), req.RestaurantName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Success: true, Analysis: a})
}

type feedbackRequest struct {
	RestaurantName    string              `json:"restaurantName"`
	CuisineType       string              `json:"cuisineType"`
	OriginalProducts  []model.ProductPick `json:"originalProducts"`
	CorrectedProducts []model.ProductPick `json:"correctedProducts" validate:"required"`
}

type feedbackResponse struct {
	Success bool `json:"success"`
	correction.FeedbackResult
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.deps.Corrections.RecordFeedback(r.Context(), correction.Feedback{
		RestaurantName: req.RestaurantName,
		Cuisine:        req.CuisineType,
		Original:       req.OriginalProducts,
		Corrected:      req.CorrectedProducts,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Success: true, FeedbackResult: res})
}

func (s *Server) corrections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Corrections.Snapshot())
}

func (s *Server) clearCorrections(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Corrections.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
