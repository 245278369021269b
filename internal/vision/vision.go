// Package vision classifies a restaurant photo into a cuisine and a ranked
// product list using a vision-capable model.
package vision

import (
	"context"
	"encoding/base64"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/metrics"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/pkg/anthropic"
)

// Defaults for the classification call.
const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 1500
)

// ErrDisabled is reported when no model client is configured.
var ErrDisabled = eris.New("vision: classifier not configured")

// Image is one photo to classify.
type Image struct {
	MediaType string
	Data      []byte
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// Status tags the outcome of a classification.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusParseFailure Status = "parse_failure"
	StatusServiceError Status = "service_error"
	StatusSkipped      Status = "skipped"
)

// Result is the tagged outcome of Classify. Analysis is set only when
// Status is StatusSuccess; every other status means "use the fallback".
type Result struct {
	Status   Status
	Analysis *model.VisionAnalysis
	Err      error
}

// OK reports whether the result carries a usable analysis.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.Analysis != nil
}

// Classifier sends photos to the model with the catalog prompt.
type Classifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	system    []anthropic.SystemBlock
	metrics   *metrics.Pipeline
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithModel overrides the model id.
func WithModel(m string) Option {
	return func(c *Classifier) {
		if m != "" {
			c.model = m
		}
	}
}

// WithMaxTokens overrides the response token limit.
func WithMaxTokens(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
	}
}

// WithMetrics reports analyzed counts and result statuses to m.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(c *Classifier) { c.metrics = m }
}

// NewClassifier builds a classifier over cat. A nil client yields a
// classifier that always reports StatusSkipped.
func NewClassifier(client anthropic.Client, cat *catalog.Catalog, opts ...Option) *Classifier {
	c := &Classifier{
		client:    client,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		system:    anthropic.BuildCachedSystemBlocks(BuildPrompt(cat)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a model client is configured.
func (c *Classifier) Enabled() bool {
	return c != nil && c.client != nil
}

// Classify sends img to the model and parses the response. It never
// substitutes a guess: service and parse failures come back as their own
// statuses.
func (c *Classifier) Classify(ctx context.Context, img Image, restaurantName string) Result {
	if !c.Enabled() {
		return Result{Status: StatusSkipped, Err: ErrDisabled}
	}

	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.system,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: userText(restaurantName),
			Images:  []anthropic.Image{{MediaType: mediaType, Data: img.Base64()}},
		}},
	})
	if err != nil {
		zap.L().Warn("vision: model call failed",
			zap.String("restaurant", restaurantName),
			zap.Error(err),
		)
		c.metrics.ObserveVision(string(StatusServiceError))
		return Result{Status: StatusServiceError, Err: eris.Wrap(err, "vision: create message")}
	}
	resp.Usage.LogCost(c.model, "vision")

	analysis, err := Parse(resp.Text())
	if err != nil {
		zap.L().Warn("vision: unparsable response",
			zap.String("restaurant", restaurantName),
			zap.Error(err),
		)
		c.metrics.ObserveVision(string(StatusParseFailure))
		return Result{Status: StatusParseFailure, Err: err}
	}

	c.metrics.IncAnalyzed()
	c.metrics.ObserveVision(string(StatusSuccess))
	zap.L().Info("vision: classified photo",
		zap.String("restaurant", restaurantName),
		zap.String("cuisine", analysis.CuisineType),
		zap.String("confidence", analysis.Confidence),
		zap.Int("products", len(analysis.Products)),
	)
	return Result{Status: StatusSuccess, Analysis: analysis}
}
