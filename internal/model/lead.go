package model

import (
	"slices"
	"time"
)

// Tier ranks the photographic evidence behind a lead's recommendations.
type Tier int

const (
	TierDirectory Tier = 1 // Business-directory photos
	TierSecondary Tier = 2 // Social presence or delivery listing
	TierRuleOnly  Tier = 3 // No strong signal; rule-based products
)

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool {
	return t >= TierDirectory && t <= TierRuleOnly
}

// Outcome is the field result of contacting a graduated lead.
type Outcome string

const (
	OutcomeUnset   Outcome = ""
	OutcomeNoReply Outcome = "no_reply"
	OutcomeReplied Outcome = "replied"
	OutcomeSold    Outcome = "sold"
	OutcomeLost    Outcome = "lost"
)

// Valid reports whether o is a recordable outcome label.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeNoReply, OutcomeReplied, OutcomeSold, OutcomeLost:
		return true
	}
	return false
}

// Contacted reports whether the outcome counts toward reply and conversion rates.
func (o Outcome) Contacted() bool {
	return o == OutcomeReplied || o == OutcomeSold || o == OutcomeLost
}

// Restaurant is the raw stub fed into enrichment.
type Restaurant struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name" validate:"required"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Website     string   `json:"website,omitempty"`
	Instagram   string   `json:"instagram,omitempty"`
	PlaceID     string   `json:"place_id,omitempty"`
	DirectoryID string   `json:"directory_id,omitempty"`
	Types       []string `json:"types,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
}

// DirectoryInfo is auxiliary business metadata from the directory source.
type DirectoryInfo struct {
	ID          string   `json:"id,omitempty"`
	URL         string   `json:"url,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	Price       string   `json:"price,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// Lead is an enriched restaurant moving through review and outreach.
type Lead struct {
	ID        string   `json:"id"`
	BatchID   string   `json:"batch_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Email     string   `json:"email,omitempty"`
	Website   string   `json:"website,omitempty"`
	Instagram string   `json:"instagram,omitempty"`
	PlaceID   string   `json:"place_id,omitempty"`
	Types     []string `json:"types,omitempty"`

	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`

	Photos        []Photo          `json:"photos"`
	PhotoAnalyzed string           `json:"photo_analyzed,omitempty"`
	Tier          Tier             `json:"photo_tier"`
	Delivery      DeliveryPresence `json:"delivery"`
	Directory     *DirectoryInfo   `json:"directory,omitempty"`

	Vision           *VisionAnalysis `json:"vision_analysis,omitempty"`
	Products         []ProductPick   `json:"products"`
	ProductsOriginal []ProductPick   `json:"products_original"`
	Cuisine          string          `json:"detected_cuisine"`
	Confidence       string          `json:"ai_confidence,omitempty"`
	Error            string          `json:"error,omitempty"`

	Graduated       bool   `json:"graduated"`
	AICorrected     bool   `json:"ai_corrected"`
	CorrectionNotes string `json:"correction_notes,omitempty"`

	Outcome              Outcome  `json:"outcome,omitempty"`
	OutcomeNotes         string   `json:"outcome_notes,omitempty"`
	ActualProductsNeeded []string `json:"actual_products_needed,omitempty"`

	SalesforceID string `json:"salesforce_id,omitempty"`

	EnrichedAt  time.Time  `json:"enriched_at"`
	GraduatedAt *time.Time `json:"graduated_at,omitempty"`
	ContactedAt *time.Time `json:"contacted_at,omitempty"`
	OutcomeAt   *time.Time `json:"outcome_at,omitempty"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (l Lead) Clone() Lead {
	c := l
	c.Types = slices.Clone(l.Types)
	c.Photos = slices.Clone(l.Photos)
	c.Products = slices.Clone(l.Products)
	c.ProductsOriginal = slices.Clone(l.ProductsOriginal)
	c.ActualProductsNeeded = slices.Clone(l.ActualProductsNeeded)
	if l.Directory != nil {
		d := *l.Directory
		d.Categories = slices.Clone(l.Directory.Categories)
		c.Directory = &d
	}
	if l.Vision != nil {
		v := l.Vision.Clone()
		c.Vision = &v
	}
	return c
}

// ProductNames returns the display names of picks in order.
func ProductNames(picks []ProductPick) []string {
	out := make([]string, len(picks))
	for i, p := range picks {
		out[i] = p.Name
	}
	return out
}
