package model

import "slices"

// ProductPick is one recommended product with its justification.
type ProductPick struct {
	SKU    string `json:"sku"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// Key identifies a pick by SKU, falling back to name.
func (p ProductPick) Key() string {
	if p.SKU != "" {
		return p.SKU
	}
	return p.Name
}

// Matches reports whether key names p by SKU or by product name.
func (p ProductPick) Matches(key string) bool {
	return key != "" && (p.SKU == key || p.Name == key)
}

// Same reports whether p and o identify the same product.
func (p ProductPick) Same(o ProductPick) bool {
	return o.Matches(p.SKU) || o.Matches(p.Name)
}

// Confidence levels reported by the vision classifier.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// VisionAnalysis is a parsed classification of one restaurant photo.
type VisionAnalysis struct {
	Description string        `json:"description"`
	CuisineType string        `json:"cuisine_type"`
	Confidence  string        `json:"confidence"`
	Products    []ProductPick `json:"products"`
	VisualCues  []string      `json:"visual_cues_detected"`
	Fallback    bool          `json:"fallback,omitempty"`
}

// Clone returns a deep copy.
func (v VisionAnalysis) Clone() VisionAnalysis {
	c := v
	c.Products = slices.Clone(v.Products)
	c.VisualCues = slices.Clone(v.VisualCues)
	return c
}

// CatalogProduct is one sellable SKU.
type CatalogProduct struct {
	SKU         string `json:"sku" yaml:"sku"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// CatalogCategory groups products under a display name.
type CatalogCategory struct {
	Name     string           `json:"name" yaml:"name"`
	Products []CatalogProduct `json:"products" yaml:"products"`
}

// Catalog maps category keys to their products.
type Catalog struct {
	Categories map[string]CatalogCategory `json:"categories" yaml:"categories"`
}
