package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/promoops/artaudit/internal/models"
)

func price(v float64) *float64 { return &v }

func testItems() []models.BatchItem {
	return []models.BatchItem{
		{
			ID:          "item-1",
			DisplayName: "flyer.png",
			Status:      models.StatusCompleted,
			Results: []models.ReconciledResult{
				{
					Product:       models.DetectedProduct{Code: "A-1", VisualPrice: price(9.99)},
					Match:         models.CatalogMatch{Found: true, Title: "Widget", CurrentPrice: "$9.99"},
					PriceMismatch: false,
					HasDiscount:   true,
				},
				{
					Product: models.DetectedProduct{Code: "B-2"},
					Match:   models.CatalogMatch{Found: false, CodeSuggestion: "B-20"},
				},
			},
			Spelling: &models.SpellingReport{
				HasErrors:   true,
				Corrections: []models.SpellingCorrection{{Original: "teh", Suggestion: "the"}},
			},
		},
		{
			ID:           "item-2",
			DisplayName:  "banner.jpg",
			Status:       models.StatusError,
			ErrorMessage: "No product codes visible in this image",
		},
		{
			ID:          "item-3",
			DisplayName: "pending.png",
			Status:      models.StatusPending,
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(testItems())

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows (2 products + 1 error), got %d", len(rows))
	}

	if rows[0].Code != "A-1" || !rows[0].CatalogFound || !rows[0].HasDiscount {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[0].VisualPrice == nil || *rows[0].VisualPrice != 9.99 {
		t.Errorf("VisualPrice = %v, want 9.99", rows[0].VisualPrice)
	}
	if rows[0].SpellingErrors != 1 {
		t.Errorf("SpellingErrors = %d, want 1", rows[0].SpellingErrors)
	}

	if rows[1].Code != "B-2" || rows[1].CatalogFound || rows[1].CodeSuggestion != "B-20" {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}

	if rows[2].ItemID != "item-2" || rows[2].ErrorMessage == "" || rows[2].Code != "" {
		t.Errorf("Unexpected error row: %+v", rows[2])
	}
}

func TestRowsSkipsNonTerminalItems(t *testing.T) {
	for _, row := range Rows(testItems()) {
		if row.ItemID == "item-3" {
			t.Error("Pending items must not be exported")
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.parquet")

	if err := WriteFile(path, testItems()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Export file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Export file is empty")
	}
}
