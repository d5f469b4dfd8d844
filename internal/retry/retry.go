package retry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// Class is the failure class a remote-call error falls into.
type Class int

const (
	// ClassOther covers everything that is not a recognized provider
	// backpressure signal. The policy is optimistic: these are retried
	// too, with a short flat delay.
	ClassOther Class = iota
	// ClassRateLimit is per-caller throttling (HTTP 429 / quota messages).
	ClassRateLimit
	// ClassOverload is provider-side saturation (HTTP 503 / overloaded).
	// Recovery is typically slower than a rate-limit window.
	ClassOverload
)

func (c Class) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassOverload:
		return "overload"
	default:
		return "other"
	}
}

// Classify inspects a remote-call error and assigns its failure class.
func Classify(err error) Class {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return ClassRateLimit
		case 503:
			return ClassOverload
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "quota"):
		return ClassRateLimit
	case strings.Contains(msg, "503"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "unavailable"):
		return ClassOverload
	}
	return ClassOther
}

// Policy holds the per-operation retry tunables.
type Policy struct {
	MaxAttempts   int
	RateLimitBase time.Duration
	OverloadBase  time.Duration
	OtherDelay    time.Duration
}

// Delay returns how long to wait after the given 1-based attempt failed.
// Backpressure classes back off linearly with the attempt index; anything
// else gets the flat delay.
func (p Policy) Delay(class Class, attempt int) time.Duration {
	switch class {
	case ClassRateLimit:
		return p.RateLimitBase * time.Duration(attempt)
	case ClassOverload:
		return p.OverloadBase * time.Duration(attempt)
	default:
		return p.OtherDelay
	}
}

// Retrier wraps remote calls with the classified-backoff policy.
type Retrier struct {
	// Sleep waits out a backoff delay. Overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Permanent reports errors that must not be retried at all,
	// such as a missing credential.
	Permanent func(err error) bool
}

// New returns a Retrier with a context-aware sleep.
func New() *Retrier {
	return &Retrier{Sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to p.MaxAttempts times, sleeping between attempts per the
// failure class of the last error. The last error is returned once the
// attempts are exhausted.
func Do[T any](ctx context.Context, r *Retrier, p Policy, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r.Permanent != nil && r.Permanent(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		class := Classify(err)
		delay := p.Delay(class, attempt)
		slog.Warn("remote call failed, retrying",
			"op", label, "attempt", attempt, "class", class.String(), "delay", delay, "err", err)

		if sleepErr := r.Sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, lastErr
}
