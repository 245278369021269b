package model

// TierOutcome counts leads and sales within one tier.
type TierOutcome struct {
	Total int `json:"total"`
	Sold  int `json:"sold"`
}

// OutcomeStats summarizes field outcomes across graduated leads.
type OutcomeStats struct {
	Total          int                    `json:"total"`
	NoReply        int                    `json:"no_reply"`
	Replied        int                    `json:"replied"`
	Sold           int                    `json:"sold"`
	Lost           int                    `json:"lost"`
	NoOutcome      int                    `json:"no_outcome"`
	ReplyRate      string                 `json:"reply_rate"`
	ConversionRate string                 `json:"conversion_rate"`
	ByTier         map[string]TierOutcome `json:"by_tier"`
}

// AccuracyStats compares predicted products against field-reported needs.
type AccuracyStats struct {
	LeadsWithFeedback  int    `json:"leads_with_feedback"`
	CorrectPredictions int    `json:"correct_predictions"`
	TotalPredictions   int    `json:"total_predictions"`
	Accuracy           string `json:"accuracy"`
	CorrectionsCount   int    `json:"corrections_count"`
	FieldFeedbackCount int    `json:"field_feedback_count"`
}

// LeadSummary is the legacy totals view.
type LeadSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Graduated int `json:"graduated"`
	Corrected int `json:"corrected"`
}
