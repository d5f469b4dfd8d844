package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/promoops/artaudit/internal/config"
	"github.com/promoops/artaudit/internal/credentials"
	"github.com/promoops/artaudit/internal/extraction"
	"github.com/promoops/artaudit/internal/models"
	"github.com/promoops/artaudit/internal/providers"
)

// routeProvider answers each of the three prompt templates with a canned
// response, recording the order of the calls.
type routeProvider struct {
	mu    sync.Mutex
	calls []string

	products    string
	productsErr error
	catalog     string
	catalogErr  error
	spelling    string
	spellingErr error
}

func (r *routeProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	var kind string
	switch {
	case strings.Contains(req.Prompt, "extract-products"):
		kind = "extract"
	case strings.Contains(req.Prompt, "catalog-lookup"):
		kind = "catalog"
	case strings.Contains(req.Prompt, "spelling-audit"):
		kind = "spelling"
	default:
		return "", errors.New("unrecognized prompt")
	}

	r.mu.Lock()
	r.calls = append(r.calls, kind)
	r.mu.Unlock()

	switch kind {
	case "extract":
		return r.products, r.productsErr
	case "catalog":
		return r.catalog, r.catalogErr
	default:
		return r.spelling, r.spellingErr
	}
}

func (r *routeProvider) callOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func fastPolicies() config.Pipeline {
	policy := config.RetryPolicy{MaxAttempts: 3}
	return config.Pipeline{
		Extraction:   policy,
		Catalog:      policy,
		Spelling:     config.RetryPolicy{MaxAttempts: 2},
		LookupPause:  0,
		SpellingMode: config.SpellingSequential,
	}
}

func newTestPipeline(provider providers.Provider, cfg config.Pipeline) *ItemPipeline {
	client := extraction.NewClient(provider, "test-model", 0)
	return NewItemPipeline(client, cfg)
}

const twoProducts = `{"products":[{"code":"A-1","price":10.0,"description":"widget"},{"code":"B-2","price":20.0,"description":"gadget"}]}`

func TestPipelineSequentialOrdering(t *testing.T) {
	provider := &routeProvider{
		products: twoProducts,
		catalog:  `{"found": true, "title": "Widget", "current_price": "$10.00"}`,
		spelling: `{"has_errors": false, "corrections": []}`,
	}
	p := newTestPipeline(provider, fastPolicies())

	var extracted []models.DetectedProduct
	outcome, err := p.Process(context.Background(), models.ImagePayload{}, func(products []models.DetectedProduct) {
		extracted = products
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []string{"extract", "catalog", "catalog", "spelling"}
	order := provider.callOrder()
	if len(order) != len(expected) {
		t.Fatalf("Call order = %v, want %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("Call order = %v, want %v", order, expected)
		}
	}

	if len(extracted) != 2 {
		t.Errorf("onExtracted received %d products, want 2", len(extracted))
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("Expected 2 reconciled results, got %d", len(outcome.Results))
	}
	if outcome.Summary.FoundCount != 2 || outcome.Summary.TotalCodes != 2 {
		t.Errorf("Unexpected summary: %+v", outcome.Summary)
	}
	if !outcome.Summary.SpellingOK {
		t.Error("Expected SpellingOK=true")
	}
}

func TestPipelineLookupPauseBetweenCatalogCalls(t *testing.T) {
	canned := &routeProvider{
		products: twoProducts,
		catalog:  `{"found": true, "title": "Widget", "current_price": "$10.00"}`,
		spelling: `{"has_errors": false, "corrections": []}`,
	}
	cfg := fastPolicies()
	cfg.LookupPause = config.Duration(1500 * time.Millisecond)

	p := newTestPipeline(canned, cfg)
	var pauses []time.Duration
	p.pause = func(ctx context.Context, d time.Duration) {
		pauses = append(pauses, d)
	}

	if _, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pauses) != 1 || pauses[0] != 1500*time.Millisecond {
		t.Fatalf("Expected a single 1.5s pause between two lookups, got %v", pauses)
	}

	// A single code needs no pause at all.
	single := &routeProvider{
		products: `{"products":[{"code":"A-1","price":10.0,"description":"widget"}]}`,
		catalog:  canned.catalog,
		spelling: canned.spelling,
	}
	p = newTestPipeline(single, cfg)
	pauses = nil
	p.pause = func(ctx context.Context, d time.Duration) {
		pauses = append(pauses, d)
	}
	if _, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pauses) != 0 {
		t.Errorf("Expected no pause for a single code, got %v", pauses)
	}
}

func TestPipelineZeroCodes(t *testing.T) {
	provider := &routeProvider{
		products: `{"products": []}`,
		spelling: `{"has_errors": false, "corrections": []}`,
	}
	p := newTestPipeline(provider, fastPolicies())

	called := false
	_, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {
		called = true
	})

	if !errors.Is(err, ErrNoProductCodes) {
		t.Fatalf("Expected ErrNoProductCodes, got %v", err)
	}
	if called {
		t.Error("onExtracted must not fire when nothing was detected")
	}
}

func TestPipelineExtractionRetriesThenFails(t *testing.T) {
	provider := &routeProvider{
		productsErr: errors.New("connection reset"),
	}
	p := newTestPipeline(provider, fastPolicies())
	p.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {})
	if err == nil {
		t.Fatal("Expected extraction failure to fail the item")
	}

	extracts := 0
	for _, kind := range provider.callOrder() {
		if kind == "extract" {
			extracts++
		}
	}
	if extracts != 3 {
		t.Errorf("Expected 3 extraction attempts, got %d", extracts)
	}
}

func TestPipelineCatalogFailureDegradesToNotFound(t *testing.T) {
	provider := &routeProvider{
		products:   twoProducts,
		catalogErr: errors.New("boom"),
		spelling:   `{"has_errors": false, "corrections": []}`,
	}
	p := newTestPipeline(provider, fastPolicies())
	p.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	outcome, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {})
	if err != nil {
		t.Fatalf("Catalog failures must not fail the item, got %v", err)
	}

	for _, r := range outcome.Results {
		if r.Match.Found {
			t.Errorf("Code %s: expected not-found after exhausted lookups", r.Product.Code)
		}
		if r.PriceMismatch {
			t.Errorf("Code %s: absence of data must not raise a mismatch", r.Product.Code)
		}
	}
	if outcome.Summary.FoundCount != 0 {
		t.Errorf("FoundCount = %d, want 0", outcome.Summary.FoundCount)
	}
}

func TestPipelineAPIKeyMissingAbortsWithoutRetry(t *testing.T) {
	provider := &routeProvider{
		productsErr: credentials.ErrAPIKeyMissing,
	}
	p := newTestPipeline(provider, fastPolicies())

	_, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {})
	if !errors.Is(err, credentials.ErrAPIKeyMissing) {
		t.Fatalf("Expected ErrAPIKeyMissing surfaced, got %v", err)
	}
	if calls := len(provider.callOrder()); calls != 1 {
		t.Errorf("Permanent credential error must not be retried, got %d calls", calls)
	}
}

func TestPipelineSpellingFailureIsNeutral(t *testing.T) {
	provider := &routeProvider{
		products:    twoProducts,
		catalog:     `{"found": true, "title": "Widget", "current_price": "$10.00"}`,
		spellingErr: errors.New("503 overloaded"),
	}
	p := newTestPipeline(provider, fastPolicies())
	p.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	outcome, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {})
	if err != nil {
		t.Fatalf("Spelling failures must not fail the item, got %v", err)
	}
	if outcome.Spelling == nil || outcome.Spelling.HasErrors {
		t.Errorf("Expected neutral spelling report, got %+v", outcome.Spelling)
	}
	if !outcome.Summary.SpellingOK {
		t.Error("Neutral spelling must count as passing")
	}

	spellings := 0
	for _, kind := range provider.callOrder() {
		if kind == "spelling" {
			spellings++
		}
	}
	if spellings != 2 {
		t.Errorf("Expected 2 spelling attempts, got %d", spellings)
	}
}

func TestPipelineConcurrentSpellingMode(t *testing.T) {
	provider := &routeProvider{
		products: twoProducts,
		catalog:  `{"found": true, "title": "Widget", "current_price": "$10.00"}`,
		spelling: `{"has_errors": true, "corrections": [{"original": "teh", "suggestion": "the", "context": "footer"}]}`,
	}
	cfg := fastPolicies()
	cfg.SpellingMode = config.SpellingConcurrent
	p := newTestPipeline(provider, cfg)

	outcome, err := p.Process(context.Background(), models.ImagePayload{}, func([]models.DetectedProduct) {})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome.Spelling == nil || !outcome.Spelling.HasErrors {
		t.Errorf("Expected spelling report collected in concurrent mode, got %+v", outcome.Spelling)
	}
	if outcome.Summary.SpellingOK {
		t.Error("Expected SpellingOK=false with a failing report")
	}
}
