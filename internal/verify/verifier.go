// Package verify runs entries through an ordered cascade of catalogs and
// keeps the best match found for each.
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/metrics"
	"github.com/matsen/bibcheck/internal/reference"
)

// DefaultPause is the delay between entries in sequential mode.
const DefaultPause = 200 * time.Millisecond

// Step is one provider in the cascade.
//
// The step runs while no candidate has been kept or the best confidence is
// below Threshold. Its candidate is kept when it scores at least
// MinConfidence and strictly more than the current best.
type Step struct {
	Name          string
	Provider      catalog.Provider
	Threshold     int
	MinConfidence int
}

// Verifier checks entries against the configured steps.
type Verifier struct {
	steps       []Step
	logger      *zap.Logger
	metrics     *metrics.Metrics
	pause       time.Duration
	concurrency int
	limiter     *rate.Limiter
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the diagnostic sink.
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMetrics records lookup and status counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// WithPause sets the delay between entries in sequential mode.
func WithPause(d time.Duration) Option {
	return func(v *Verifier) {
		if d >= 0 {
			v.pause = d
		}
	}
}

// WithConcurrency verifies up to n entries at once. Values below 2 keep the
// sequential, paced mode.
func WithConcurrency(n int) Option {
	return func(v *Verifier) {
		v.concurrency = n
	}
}

// WithLimiter shares a request budget between concurrent entries. It is only
// consulted when concurrency is above 1.
func WithLimiter(l *rate.Limiter) Option {
	return func(v *Verifier) {
		v.limiter = l
	}
}

// New creates a Verifier over steps, which are tried in order.
func New(steps []Step, opts ...Option) *Verifier {
	v := &Verifier{
		steps:       steps,
		logger:      zap.NewNop(),
		pause:       DefaultPause,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.limiter == nil {
		v.limiter = rate.NewLimiter(rate.Every(DefaultPause), 1)
	}
	return v
}

// Steps returns the configured cascade.
func (v *Verifier) Steps() []Step {
	return v.steps
}

// VerifyEntry produces the verification result for one entry. Provider
// failures are logged and treated as no result; they never stop the cascade.
func (v *Verifier) VerifyEntry(ctx context.Context, entry reference.Entry) reference.VerificationResult {
	title := entry.Title
	author := entry.AuthorString()
	log := v.logger.With(zap.String("entry", entry.ID), zap.String("title", title))

	var best *reference.MatchCandidate
	for _, step := range v.steps {
		if best != nil && best.Confidence >= step.Threshold {
			v.metrics.ObserveLookup(step.Name, metrics.OutcomeSkipped, 0)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		candidate := v.lookup(ctx, log, step, title, author)
		if candidate == nil || candidate.Confidence < step.MinConfidence {
			continue
		}
		if best == nil || candidate.Confidence > best.Confidence {
			best = candidate
		}
	}

	result := reference.NewResult(entry, best)
	v.metrics.ObserveEntry(string(result.Status))
	log.Debug("entry verified", zap.String("status", string(result.Status)))
	return result
}

// lookup calls one provider, converting errors and panics into a nil
// candidate.
func (v *Verifier) lookup(ctx context.Context, log *zap.Logger, step Step, title, author string) (c *reference.MatchCandidate) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("provider panicked", zap.String("provider", step.Name), zap.Any("panic", r))
			v.metrics.ObserveLookup(step.Name, metrics.OutcomeError, time.Since(start))
			c = nil
		}
	}()

	c, err := step.Provider.Lookup(ctx, title, author)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		log.Warn("provider lookup failed",
			zap.String("provider", step.Name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		v.metrics.ObserveLookup(step.Name, metrics.OutcomeError, elapsed)
		return nil
	case c == nil:
		log.Debug("provider returned no match", zap.String("provider", step.Name))
		v.metrics.ObserveLookup(step.Name, metrics.OutcomeEmpty, elapsed)
		return nil
	}

	log.Debug("provider match",
		zap.String("provider", step.Name),
		zap.String("match", c.Title),
		zap.Int("confidence", c.Confidence))
	v.metrics.ObserveLookup(step.Name, metrics.OutcomeMatch, elapsed)
	return c
}

// VerifyBibliography verifies every entry and returns the results in input
// order. When ctx is cancelled it returns the results of the entries that
// completed before the cancellation together with ctx.Err(); an entry whose
// cascade was interrupted is never reported.
func (v *Verifier) VerifyBibliography(ctx context.Context, entries []reference.Entry) ([]reference.VerificationResult, error) {
	if v.concurrency > 1 {
		return v.verifyConcurrent(ctx, entries)
	}

	results := make([]reference.VerificationResult, 0, len(entries))
	for i, entry := range entries {
		if i > 0 && v.pause > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(v.pause):
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := v.VerifyEntry(ctx, entry)
		// The cascade was cut short, so res is not a real outcome.
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, res)
	}

	v.logger.Info("bibliography verified", zap.Int("entries", len(entries)))
	return results, nil
}

// verifyConcurrent verifies entries in parallel under the shared limiter.
// Entries that did not complete before a cancellation are left zero-valued.
func (v *Verifier) verifyConcurrent(ctx context.Context, entries []reference.Entry) ([]reference.VerificationResult, error) {
	results := make([]reference.VerificationResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := v.limiter.Wait(gctx); err != nil {
				return fmt.Errorf("waiting to verify entry %d: %w", i, err)
			}
			res := v.VerifyEntry(gctx, entry)
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	v.logger.Info("bibliography verified",
		zap.Int("entries", len(entries)),
		zap.Int("concurrency", v.concurrency))
	return results, nil
}
