package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// retryProvider re-issues failed Generate calls with exponential backoff.
type retryProvider struct {
	next Provider
	cfg  RetryConfig
}

// WithRetry wraps a provider so transient failures are retried up to
// cfg.MaxAttempts. Schema-invalid output gets exactly one extra attempt;
// truncation and context errors fail immediately.
func WithRetry(next Provider, cfg RetryConfig) Provider {
	return &retryProvider{next: next, cfg: cfg}
}

type retryClass int

const (
	giveUp    retryClass = iota
	transient            // rate limits, outages, unclassified network errors
	oneShot              // schema-invalid output: the model may do better once
)

func classify(err error) retryClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return giveUp
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		// Truncation is a MaxTokens configuration problem; the same
		// request truncates again.
		return giveUp
	}
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) {
		return oneShot
	}
	return transient
}

func (r *retryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	invalidSeen := false

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		resp, err := r.next.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch classify(err) {
		case giveUp:
			return nil, err
		case oneShot:
			if invalidSeen {
				return nil, err
			}
			invalidSeen = true
		}

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		if err := r.pause(ctx, attempt, lastErr); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *retryProvider) ModelID() string { return r.next.ModelID() }

// pause waits out the backoff for the given attempt, cut short when the
// context ends.
func (r *retryProvider) pause(ctx context.Context, attempt int, cause error) error {
	t := time.NewTimer(r.delay(attempt, cause))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *retryProvider) delay(attempt int, cause error) time.Duration {
	// A server-provided Retry-After wins over our own schedule.
	var rl *ErrRateLimit
	if errors.As(cause, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	d := time.Duration(float64(r.cfg.InitialWait) * math.Pow(r.cfg.Multiplier, float64(attempt)))
	if d > r.cfg.MaxWait {
		d = r.cfg.MaxWait
	}
	// Spread concurrent callers out by up to 20% either way.
	d += time.Duration((rand.Float64()*0.4 - 0.2) * float64(d))
	if d < 0 {
		d = 0
	}
	return d
}
