// Package queue owns the ordered batch of audit items and drives them,
// one at a time, through the extraction and validation pipeline.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promoops/artaudit/internal/credentials"
	"github.com/promoops/artaudit/internal/extraction"
	"github.com/promoops/artaudit/internal/models"
)

// ErrWorkerBusy is returned by Prioritize while an item is in flight.
var ErrWorkerBusy = errors.New("an item is currently being processed")

// ErrNotPending is returned when a control operation needs a pending item.
var ErrNotPending = errors.New("item is not pending")

// ErrNoProductCodes is the zero-detection outcome: extraction succeeded
// but found nothing to validate.
var ErrNoProductCodes = errors.New("no product codes detected")

// Pipeline processes a single image. onExtracted is invoked once the
// product codes are known, before catalog validation starts.
type Pipeline interface {
	Process(ctx context.Context, payload models.ImagePayload, onExtracted func([]models.DetectedProduct)) (*Outcome, error)
}

// Outcome is the full result of one item's pipeline run.
type Outcome struct {
	Results  []models.ReconciledResult
	Spelling *models.SpellingReport
	Summary  models.ItemSummary
}

// Scheduler owns the queue. All mutation goes through its methods; readers
// get point-in-time snapshots. At most one item is in flight at a time:
// the provider enforces aggressive per-caller rate limits, so work is
// strictly sequential across items.
type Scheduler struct {
	pipeline Pipeline
	cooldown time.Duration

	// sleep waits out the post-item cooldown. Overridable in tests.
	sleep func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	items   []*models.BatchItem
	working bool
	started bool
	// gen counts admissions of the worker slot. ForceResume bumps it so an
	// overtaken run that finishes late cannot release a slot it no longer
	// holds and admit a concurrent item.
	gen uint64
	ctx context.Context
}

// NewScheduler creates a stopped scheduler. Items may be enqueued right
// away, but nothing is dispatched until Start.
func NewScheduler(pipeline Pipeline, cooldown time.Duration) *Scheduler {
	s := &Scheduler{
		pipeline: pipeline,
		cooldown: cooldown,
		sleep:    sleepCtx,
		ctx:      context.Background(),
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Start binds the scheduler to a context. In-flight work observes the
// context's cancellation at its next remote call.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.started = true
	s.mu.Unlock()
	s.maybeDispatch()
}

// Enqueue appends a new pending item and wakes the worker if it is idle.
func (s *Scheduler) Enqueue(displayName string, payload models.ImagePayload) string {
	item := &models.BatchItem{
		ID:               uuid.NewString(),
		DisplayName:      displayName,
		Payload:          payload,
		Status:           models.StatusPending,
		DetectedProducts: []models.DetectedProduct{},
		CreatedAt:        time.Now(),
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	slog.Info("item enqueued", "id", item.ID, "name", displayName)
	s.maybeDispatch()
	return item.ID
}

// Remove deletes an item in any state. Removing an in-flight item is
// advisory: the outstanding remote calls are not interrupted, but their
// eventual status updates find no item and are discarded.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			slog.Info("item removed", "id", id, "status", item.Status)
			return true
		}
	}
	return false
}

// CancelPending removes every item still waiting and returns the count.
func (s *Scheduler) CancelPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if item.Status == models.StatusPending {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	if removed > 0 {
		slog.Info("pending items cancelled", "count", removed)
	}
	return removed
}

// Prioritize moves a pending item to the front of the pending run. Only
// permitted while the worker is idle, so the FIFO guarantee is suspended
// solely by an explicit caller decision.
func (s *Scheduler) Prioritize(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.working {
		return ErrWorkerBusy
	}

	idx := -1
	for i, item := range s.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return errors.New("item not found")
	}
	if s.items[idx].Status != models.StatusPending {
		return ErrNotPending
	}

	item := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)

	insert := len(s.items)
	for i, existing := range s.items {
		if existing.Status == models.StatusPending {
			insert = i
			break
		}
	}
	s.items = append(s.items[:insert], append([]*models.BatchItem{item}, s.items[insert:]...)...)
	slog.Info("item prioritized", "id", id)
	return nil
}

// ForceResume clears a stalled admission lock and dispatches the next
// pending item. If the stalled run eventually finishes, its updates still
// apply by item id, but the worker slot stays with whoever was admitted
// after it; this is a manual escape hatch, not a normal path.
func (s *Scheduler) ForceResume() {
	s.mu.Lock()
	s.working = false
	s.gen++
	s.mu.Unlock()
	slog.Warn("worker lock force-cleared")
	s.maybeDispatch()
}

// Active reports whether an item is currently in flight.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

// Snapshot returns a read-only, point-in-time copy of the whole queue.
func (s *Scheduler) Snapshot() []models.BatchItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BatchItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, copyItem(item))
	}
	return out
}

func copyItem(item *models.BatchItem) models.BatchItem {
	c := *item
	c.DetectedProducts = append([]models.DetectedProduct(nil), item.DetectedProducts...)
	c.Results = append([]models.ReconciledResult(nil), item.Results...)
	if item.Spelling != nil {
		sp := *item.Spelling
		sp.Corrections = append([]models.SpellingCorrection(nil), item.Spelling.Corrections...)
		c.Spelling = &sp
	}
	if item.Summary != nil {
		sum := *item.Summary
		c.Summary = &sum
	}
	return c
}

// maybeDispatch admits the first pending item when the worker is idle.
func (s *Scheduler) maybeDispatch() {
	s.mu.Lock()
	if !s.started || s.working {
		s.mu.Unlock()
		return
	}

	var next *models.BatchItem
	for _, item := range s.items {
		if item.Status == models.StatusPending {
			next = item
			break
		}
	}
	if next == nil {
		s.mu.Unlock()
		return
	}

	s.working = true
	s.gen++
	next.Status = models.StatusAnalyzing
	id, payload, ctx, gen := next.ID, next.Payload, s.ctx, s.gen
	s.mu.Unlock()

	go s.runItem(ctx, gen, id, payload)
}

// runItem drives one item through the pipeline and then, after the
// cooldown, hands the worker slot to the next pending item. Errors are
// absorbed here: one item's failure never halts the batch. A run whose
// slot was reassigned by ForceResume still applies its result by item
// id, but it does not release the slot or dispatch.
func (s *Scheduler) runItem(ctx context.Context, gen uint64, id string, payload models.ImagePayload) {
	slog.Info("processing item", "id", id)

	outcome, err := s.pipeline.Process(ctx, payload, func(products []models.DetectedProduct) {
		s.applyExtracted(id, products)
	})
	if err != nil {
		s.applyError(id, err)
	} else {
		s.applyOutcome(id, outcome)
	}

	s.sleep(ctx, s.cooldown)

	s.mu.Lock()
	overtaken := gen != s.gen
	if !overtaken {
		s.working = false
	}
	s.mu.Unlock()
	if overtaken {
		slog.Debug("overtaken run finished, slot left with its new owner", "id", id)
		return
	}

	if ctx.Err() == nil {
		s.maybeDispatch()
	}
}

// find returns the item with the given id, or nil when it was removed.
// Callers must hold the lock.
func (s *Scheduler) find(id string) *models.BatchItem {
	for _, item := range s.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Scheduler) applyExtracted(id string, products []models.DetectedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.find(id)
	if item == nil {
		return
	}
	item.Status = models.StatusValidating
	item.DetectedProducts = products
}

func (s *Scheduler) applyOutcome(id string, outcome *Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.find(id)
	if item == nil {
		slog.Debug("result for removed item discarded", "id", id)
		return
	}
	item.Status = models.StatusCompleted
	item.Results = outcome.Results
	item.Spelling = outcome.Spelling
	summary := outcome.Summary
	item.Summary = &summary
	slog.Info("item completed", "id", id,
		"codes", summary.TotalCodes, "found", summary.FoundCount,
		"mismatches", summary.MismatchCount, "spelling_ok", summary.SpellingOK)
}

func (s *Scheduler) applyError(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.find(id)
	if item == nil {
		slog.Debug("error for removed item discarded", "id", id)
		return
	}
	item.Status = models.StatusError
	item.ErrorMessage = errorMessage(err)
	slog.Warn("item failed", "id", id, "err", err)
}

// errorMessage maps pipeline errors to the short user-facing messages
// shown on terminal error items.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, credentials.ErrAPIKeyMissing):
		return "Gemini API key not configured"
	case errors.Is(err, ErrNoProductCodes):
		return "No product codes visible in this image"
	case errors.Is(err, extraction.ErrEmptyResponse):
		return "The AI returned an empty response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Analysis interrupted"
	default:
		return "Analysis failed: " + err.Error()
	}
}
