package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/vision"
)

// ErrInvalidImage is returned when an uploaded image cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// AnalyzeImage classifies an operator-supplied base64 image and applies
// stored corrections. There is no rule fallback: a failed classification is
// returned as an error.
func (r *Runner) AnalyzeImage(ctx context.Context, data, mediaType, restaurantName string) (*model.VisionAnalysis, error) {
	if r.classifier == nil || !r.classifier.Enabled() {
		return nil, vision.ErrDisabled
	}

	// Accept data URLs as pasted from a browser.
	if i := strings.Index(data, ";base64,"); strings.HasPrefix(data, "data:") && i > 0 {
		if mediaType == "" {
			mediaType = strings.TrimPrefix(data[:i], "data:")
		}
		data = data[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil || len(raw) == 0 {
		return nil, eris.Wrap(ErrInvalidImage, "pipeline: decode image")
	}
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	return r.analyze(ctx, vision.Image{MediaType: mediaType, Data: raw}, restaurantName)
}

// AnalyzeURL downloads imageURL and classifies it like AnalyzeImage.
func (r *Runner) AnalyzeURL(ctx context.Context, imageURL, restaurantName string) (*model.VisionAnalysis, error) {
	if r.classifier == nil || !r.classifier.Enabled() || r.fetcher == nil {
		return nil, vision.ErrDisabled
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.ImageTimeout)
	defer cancel()
	img, err := r.fetcher.Fetch(fetchCtx, imageURL)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch image")
	}
	return r.analyze(ctx, img, restaurantName)
}

func (r *Runner) analyze(ctx context.Context, img vision.Image, restaurantName string) (*model.VisionAnalysis, error) {
	res := r.classifier.Classify(ctx, img, restaurantName)
	if !res.OK() {
		if res.Err != nil {
			return nil, eris.Wrapf(res.Err, "pipeline: classify (%s)", res.Status)
		}
		return nil, eris.Errorf("pipeline: classify (%s)", res.Status)
	}
	if r.corrections != nil {
		r.corrections.Apply(res.Analysis, restaurantName)
	}
	return res.Analysis, nil
}
