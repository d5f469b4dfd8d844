package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/promoops/artaudit/internal/config"
	"github.com/promoops/artaudit/internal/credentials"
	"github.com/promoops/artaudit/internal/extraction"
	"github.com/promoops/artaudit/internal/models"
	"github.com/promoops/artaudit/internal/reconcile"
	"github.com/promoops/artaudit/internal/retry"
)

// ItemPipeline runs one image through extraction, catalog validation and
// the spelling audit, wrapping every remote call with the retry policy.
type ItemPipeline struct {
	client  *extraction.Client
	retrier *retry.Retrier
	cfg     config.Pipeline

	// pause waits out the inter-lookup interval. Overridable in tests.
	pause func(ctx context.Context, d time.Duration)
}

// NewItemPipeline wires an extraction client into the configured pipeline.
func NewItemPipeline(client *extraction.Client, cfg config.Pipeline) *ItemPipeline {
	r := retry.New()
	// Missing credentials are permanent, not transient: retrying cannot
	// conjure up an API key.
	r.Permanent = func(err error) bool {
		return errors.Is(err, credentials.ErrAPIKeyMissing)
	}
	return &ItemPipeline{
		client:  client,
		retrier: r,
		cfg:     cfg,
		pause:   sleepCtx,
	}
}

func policy(p config.RetryPolicy) retry.Policy {
	return retry.Policy{
		MaxAttempts:   p.MaxAttempts,
		RateLimitBase: p.RateLimitBase.Std(),
		OverloadBase:  p.OverloadBase.Std(),
		OtherDelay:    p.OtherDelay.Std(),
	}
}

// Process implements Pipeline. Execution order is deliberate: extraction
// first, then one catalog lookup per detected code, spelling last (or
// overlapped, per the configured mode) so a provider failure on the least
// time-critical signal never blocks SKU and price results.
func (p *ItemPipeline) Process(ctx context.Context, payload models.ImagePayload, onExtracted func([]models.DetectedProduct)) (*Outcome, error) {
	var spellingCh chan *models.SpellingReport
	if p.cfg.SpellingMode == config.SpellingConcurrent {
		spellingCh = make(chan *models.SpellingReport, 1)
		go func() {
			spellingCh <- p.auditSpelling(ctx, payload)
		}()
	}

	products, err := retry.Do(ctx, p.retrier, policy(p.cfg.Extraction), "extract_products",
		func(ctx context.Context) ([]models.DetectedProduct, error) {
			return p.client.ExtractProducts(ctx, payload)
		})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoProductCodes
	}
	onExtracted(products)

	results := make([]models.ReconciledResult, 0, len(products))
	for i, product := range products {
		if i > 0 {
			// Short pause between lookups in the same item keeps the
			// aggregate request rate down when many codes share one image.
			p.pause(ctx, p.cfg.LookupPause.Std())
		}

		match, err := p.lookupCatalog(ctx, product.Code)
		if err != nil {
			return nil, err
		}
		results = append(results, reconcile.Reconcile(product, match))
	}

	var spelling *models.SpellingReport
	if spellingCh != nil {
		spelling = <-spellingCh
	} else {
		spelling = p.auditSpelling(ctx, payload)
	}

	return &Outcome{
		Results:  results,
		Spelling: spelling,
		Summary:  reconcile.Summarize(results, spelling),
	}, nil
}

// lookupCatalog validates one code. Exhausted retries degrade to a
// not-found match rather than failing the item; only the permanent
// missing-credential condition aborts.
func (p *ItemPipeline) lookupCatalog(ctx context.Context, code string) (models.CatalogMatch, error) {
	match, err := retry.Do(ctx, p.retrier, policy(p.cfg.Catalog), "lookup_catalog",
		func(ctx context.Context) (models.CatalogMatch, error) {
			return p.client.LookupCatalog(ctx, code)
		})
	if err != nil {
		if errors.Is(err, credentials.ErrAPIKeyMissing) {
			return models.CatalogMatch{}, err
		}
		slog.Warn("catalog lookup gave up, treating code as not found", "code", code, "err", err)
		return models.CatalogMatch{Found: false}, nil
	}
	return match, nil
}

// auditSpelling never fails: exhausted retries degrade to the neutral
// report so spelling cannot block the pipeline.
func (p *ItemPipeline) auditSpelling(ctx context.Context, payload models.ImagePayload) *models.SpellingReport {
	report, err := retry.Do(ctx, p.retrier, policy(p.cfg.Spelling), "audit_spelling",
		func(ctx context.Context) (*models.SpellingReport, error) {
			return p.client.AuditSpelling(ctx, payload)
		})
	if err != nil {
		slog.Warn("spelling audit gave up, using neutral result", "err", err)
		return &models.SpellingReport{HasErrors: false, Corrections: []models.SpellingCorrection{}}
	}
	return report
}
