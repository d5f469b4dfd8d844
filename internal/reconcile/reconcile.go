// Package reconcile turns raw extraction and catalog output into verdicts.
package reconcile

import (
	"strings"

	"github.com/promoops/artaudit/internal/models"
	"github.com/shopspring/decimal"
)

// priceTolerance absorbs formatting and rounding noise between the price
// printed on the artwork and the catalog's currency-formatted string.
var priceTolerance = decimal.New(5, -2) // 0.05

// ParsePrice extracts a numeric amount from a currency-formatted string,
// e.g. "R$ 1299.90" -> 1299.90. Every character outside digits and the
// decimal point is dropped. Returns false when nothing numeric remains.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Reconcile pairs one detected product with its catalog match and derives
// the verdict flags. Absence of data is never treated as a mismatch: only
// a found match with a positive visual price can raise the flag.
func Reconcile(product models.DetectedProduct, match models.CatalogMatch) models.ReconciledResult {
	result := models.ReconciledResult{
		Product: product,
		Match:   match,
	}

	if match.Found && product.VisualPrice != nil && *product.VisualPrice > 0 {
		if catalogPrice, ok := ParsePrice(match.CurrentPrice); ok {
			visual := decimal.NewFromFloat(*product.VisualPrice)
			result.PriceMismatch = catalogPrice.Sub(visual).Abs().GreaterThan(priceTolerance)
		}
	}

	result.HasDiscount = match.PreviousPrice != "" && match.PreviousPrice != match.CurrentPrice

	return result
}

// Summarize aggregates the per-product verdicts of one item.
func Summarize(results []models.ReconciledResult, spelling *models.SpellingReport) models.ItemSummary {
	summary := models.ItemSummary{
		TotalCodes: len(results),
		SpellingOK: spelling == nil || !spelling.HasErrors,
	}
	for _, r := range results {
		if r.Match.Found {
			summary.FoundCount++
		}
		if r.PriceMismatch {
			summary.MismatchCount++
		}
	}
	return summary
}
