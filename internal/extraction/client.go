// Package extraction translates raw artwork images into structured results
// by calling the vision provider with fixed instruction templates and
// strict response schemas.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promoops/artaudit/internal/models"
	"github.com/promoops/artaudit/internal/providers"
)

// ErrEmptyResponse means the provider returned no usable body for a
// product extraction, which fails the item (unlike the best-effort paths).
var ErrEmptyResponse = errors.New("provider returned an empty response")

// Client wraps a vision provider with the three audit operations.
type Client struct {
	provider    providers.Provider
	model       string
	temperature float64
}

// NewClient creates an extraction client on top of the given provider.
func NewClient(provider providers.Provider, model string, temperature float64) *Client {
	return &Client{
		provider:    provider,
		model:       model,
		temperature: temperature,
	}
}

func (c *Client) request(prompt string, image models.ImagePayload, forceJSON bool) providers.Request {
	return providers.Request{
		Model:       c.model,
		Temperature: c.temperature,
		Prompt:      prompt,
		Image:       image.Data,
		MIMEType:    image.MIMEType,
		ForceJSON:   forceJSON,
	}
}

// ExtractProducts reads product codes, printed prices and short descriptions
// off the artwork. Codes are normalized (trimmed, upper-cased) and
// deduplicated, first occurrence wins.
func (c *Client) ExtractProducts(ctx context.Context, image models.ImagePayload) ([]models.DetectedProduct, error) {
	raw, err := c.provider.Generate(ctx, c.request(productExtractionPrompt, image, true))
	if err != nil {
		return nil, err
	}

	raw = stripCodeFence(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var parsed struct {
		Products []struct {
			Code        string   `json:"code"`
			Price       *float64 `json:"price"`
			Description string   `json:"description"`
		} `json:"products"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse product extraction response: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Products))
	products := make([]models.DetectedProduct, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		code := NormalizeCode(p.Code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		products = append(products, models.DetectedProduct{
			Code:              code,
			VisualPrice:       p.Price,
			VisualDescription: strings.TrimSpace(p.Description),
		})
	}

	slog.Info("product extraction complete", "detected", len(products), "raw", len(parsed.Products))
	return products, nil
}

// AuditSpelling checks the on-image text for spelling and accent errors.
// Spelling is best-effort: any parse failure degrades to the neutral
// report instead of propagating.
func (c *Client) AuditSpelling(ctx context.Context, image models.ImagePayload) (*models.SpellingReport, error) {
	raw, err := c.provider.Generate(ctx, c.request(spellingAuditPrompt, image, true))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		HasErrors   bool `json:"has_errors"`
		Corrections []struct {
			Original   string `json:"original"`
			Suggestion string `json:"suggestion"`
			Context    string `json:"context"`
		} `json:"corrections"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		slog.Warn("failed to parse spelling report, using neutral result", "err", err)
		return &models.SpellingReport{HasErrors: false, Corrections: []models.SpellingCorrection{}}, nil
	}

	report := &models.SpellingReport{
		HasErrors:   parsed.HasErrors,
		Corrections: make([]models.SpellingCorrection, 0, len(parsed.Corrections)),
	}
	for _, corr := range parsed.Corrections {
		report.Corrections = append(report.Corrections, models.SpellingCorrection{
			Original:   corr.Original,
			Suggestion: corr.Suggestion,
			Context:    corr.Context,
		})
	}
	return report, nil
}

// LookupCatalog validates one detected code against the live retailer
// catalog through a web-grounded provider query. Parse failures degrade to
// a not-found match. When the provider's own textual evidence (title or
// URL) contains the queried code, found is forced true regardless of the
// provider's boolean claim.
func (c *Client) LookupCatalog(ctx context.Context, code string) (models.CatalogMatch, error) {
	stripped := strings.ReplaceAll(code, "-", "")
	prompt := fmt.Sprintf(catalogLookupPrompt, code, stripped)

	raw, err := c.provider.Generate(ctx, providers.Request{
		Model:       c.model,
		Temperature: c.temperature,
		Prompt:      prompt,
		WebSearch:   true,
	})
	if err != nil {
		return models.CatalogMatch{}, err
	}

	var match models.CatalogMatch
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &match); err != nil {
		slog.Warn("failed to parse catalog lookup response", "code", code, "err", err)
		return models.CatalogMatch{Found: false}, nil
	}

	if !match.Found && matchContainsCode(match, code, stripped) {
		slog.Debug("catalog lookup confirmation override", "code", code)
		match.Found = true
	}
	if match.Found {
		match.CodeSuggestion = ""
	}

	return match, nil
}

// NormalizeCode trims and upper-cases a product code so equal SKUs printed
// with different casing or stray whitespace collapse to one entry.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// matchContainsCode checks whether the provider's textual evidence mentions
// the queried code in either its raw or hyphen-stripped form.
func matchContainsCode(match models.CatalogMatch, code, stripped string) bool {
	evidence := strings.ToUpper(match.Title + " " + match.URL)
	if code != "" && strings.Contains(evidence, strings.ToUpper(code)) {
		return true
	}
	return stripped != "" && strings.Contains(evidence, strings.ToUpper(stripped))
}

// stripCodeFence removes markdown code-block markers the model sometimes
// wraps around its JSON despite instructions.
func stripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
