package models

import "time"

// Status tracks a batch item through the audit pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InFlight reports whether the worker currently owns the item.
func (s Status) InFlight() bool {
	return s == StatusAnalyzing || s == StatusValidating
}

// ImagePayload is the raw uploaded artwork.
type ImagePayload struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// BatchItem is one uploaded image and its full pipeline state.
type BatchItem struct {
	ID               string             `json:"id"`
	DisplayName      string             `json:"display_name"`
	Payload          ImagePayload       `json:"payload"`
	Status           Status             `json:"status"`
	DetectedProducts []DetectedProduct  `json:"detected_products"`
	Results          []ReconciledResult `json:"results,omitempty"`
	Spelling         *SpellingReport    `json:"spelling,omitempty"`
	Summary          *ItemSummary       `json:"summary,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// DetectedProduct is one product block read off the artwork.
type DetectedProduct struct {
	Code              string   `json:"code"`
	VisualPrice       *float64 `json:"visual_price,omitempty"`
	VisualDescription string   `json:"visual_description,omitempty"`
}

// CatalogMatch is the catalog's answer for one detected code.
type CatalogMatch struct {
	Found          bool   `json:"found"`
	Title          string `json:"title,omitempty"`
	CurrentPrice   string `json:"current_price,omitempty"`
	PreviousPrice  string `json:"previous_price,omitempty"`
	URL            string `json:"url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	CodeSuggestion string `json:"code_suggestion,omitempty"`
}

// ReconciledResult pairs a detected product with its catalog match
// and the verdict flags derived from the pair.
type ReconciledResult struct {
	Product       DetectedProduct `json:"product"`
	Match         CatalogMatch    `json:"match"`
	PriceMismatch bool            `json:"price_mismatch"`
	HasDiscount   bool            `json:"has_discount"`
}

// SpellingCorrection is one suggested fix from the spelling audit.
type SpellingCorrection struct {
	Original   string `json:"original"`
	Suggestion string `json:"suggestion"`
	Context    string `json:"context,omitempty"`
}

// SpellingReport is the outcome of the on-image text audit.
type SpellingReport struct {
	HasErrors   bool                 `json:"has_errors"`
	Corrections []SpellingCorrection `json:"corrections"`
}

// ItemSummary aggregates the per-product verdicts for one item.
type ItemSummary struct {
	TotalCodes    int  `json:"total_codes"`
	FoundCount    int  `json:"found_count"`
	MismatchCount int  `json:"mismatch_count"`
	SpellingOK    bool `json:"spelling_ok"`
}
