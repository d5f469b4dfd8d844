// Package export flattens finished audit results for downstream analytics.
package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/promoops/artaudit/internal/models"
)

// ResultRow is one detected product (or one failed item) in the export.
type ResultRow struct {
	ItemID         string   `parquet:"item_id"`
	DisplayName    string   `parquet:"display_name"`
	Status         string   `parquet:"status"`
	Code           string   `parquet:"code"`
	VisualPrice    *float64 `parquet:"visual_price,optional"`
	CatalogFound   bool     `parquet:"catalog_found"`
	CatalogTitle   string   `parquet:"catalog_title"`
	CatalogPrice   string   `parquet:"catalog_price"`
	CatalogURL     string   `parquet:"catalog_url"`
	CodeSuggestion string   `parquet:"code_suggestion"`
	PriceMismatch  bool     `parquet:"price_mismatch"`
	HasDiscount    bool     `parquet:"has_discount"`
	SpellingErrors int32    `parquet:"spelling_errors"`
	ErrorMessage   string   `parquet:"error_message"`
}

// Rows flattens terminal items to export rows: one row per reconciled
// product, or a single row carrying the error message for failed items.
// Items still moving through the pipeline are skipped.
func Rows(items []models.BatchItem) []ResultRow {
	var rows []ResultRow
	for _, item := range items {
		if !item.Status.Terminal() {
			continue
		}

		spellingErrors := int32(0)
		if item.Spelling != nil {
			spellingErrors = int32(len(item.Spelling.Corrections))
		}

		if len(item.Results) == 0 {
			rows = append(rows, ResultRow{
				ItemID:       item.ID,
				DisplayName:  item.DisplayName,
				Status:       string(item.Status),
				ErrorMessage: item.ErrorMessage,
			})
			continue
		}

		for _, r := range item.Results {
			rows = append(rows, ResultRow{
				ItemID:         item.ID,
				DisplayName:    item.DisplayName,
				Status:         string(item.Status),
				Code:           r.Product.Code,
				VisualPrice:    r.Product.VisualPrice,
				CatalogFound:   r.Match.Found,
				CatalogTitle:   r.Match.Title,
				CatalogPrice:   r.Match.CurrentPrice,
				CatalogURL:     r.Match.URL,
				CodeSuggestion: r.Match.CodeSuggestion,
				PriceMismatch:  r.PriceMismatch,
				HasDiscount:    r.HasDiscount,
				SpellingErrors: spellingErrors,
				ErrorMessage:   item.ErrorMessage,
			})
		}
	}
	return rows
}

// WriteFile writes the export rows for the given items to a parquet file.
func WriteFile(path string, items []models.BatchItem) error {
	rows := Rows(items)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[ResultRow](f)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write export rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize export file: %w", err)
	}
	return nil
}
