package main

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/config"
	"github.com/matsen/bibcheck/internal/metrics"
	"github.com/matsen/bibcheck/internal/verify"
)

// clientOptions are the catalog options shared by every provider.
func clientOptions(cfg *config.Config) []catalog.Option {
	return []catalog.Option{
		catalog.WithRateLimit(cfg.RateLimit),
		catalog.WithUserAgent(cfg.UserAgent),
		catalog.WithMailto(cfg.Mailto),
	}
}

// buildSteps turns the enabled providers of cfg into the verification cascade.
func buildSteps(cfg *config.Config) ([]verify.Step, error) {
	var steps []verify.Step
	for _, p := range cfg.EnabledProviders() {
		opts := clientOptions(cfg)
		if p.Timeout > 0 {
			opts = append(opts, catalog.WithTimeout(p.Timeout))
		}
		if p.BaseURL != "" {
			opts = append(opts, catalog.WithBaseURL(p.BaseURL))
		}

		provider, err := catalog.NewProvider(p.Name, opts...)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		steps = append(steps, verify.Step{
			Name:          p.Name,
			Provider:      provider,
			Threshold:     p.Threshold,
			MinConfidence: p.MinConfidence,
		})
	}
	if len(steps) == 0 {
		return nil, config.ErrNoProviders
	}
	return steps, nil
}

// newVerifier builds a Verifier for cfg. m may be nil.
func newVerifier(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*verify.Verifier, error) {
	steps, err := buildSteps(cfg)
	if err != nil {
		return nil, err
	}

	opts := []verify.Option{
		verify.WithLogger(logger),
		verify.WithMetrics(m),
		verify.WithPause(cfg.Pause),
		verify.WithConcurrency(cfg.Concurrency),
	}
	if cfg.Concurrency > 1 && cfg.RateLimit > 0 {
		opts = append(opts, verify.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Concurrency)))
	}
	return verify.New(steps, opts...), nil
}

// crossRefFor returns the CrossRef client used for retraction checks, honouring
// a configured CrossRef base URL and timeout.
func crossRefFor(cfg *config.Config) *catalog.CrossRef {
	opts := clientOptions(cfg)
	for _, p := range cfg.Providers {
		if p.Name != catalog.NameCrossRef {
			continue
		}
		if p.Timeout > 0 {
			opts = append(opts, catalog.WithTimeout(p.Timeout))
		}
		if p.BaseURL != "" {
			opts = append(opts, catalog.WithBaseURL(p.BaseURL))
		}
	}
	return catalog.NewCrossRef(opts...)
}

// cliMetrics returns collectors when --metrics-file is set, nil otherwise.
func cliMetrics() *metrics.Metrics {
	if metricsFile == "" {
		return nil
	}
	return metrics.New()
}

// flushMetrics writes m to --metrics-file. Failures are logged, not fatal.
func flushMetrics(m *metrics.Metrics, logger *zap.Logger) {
	if m == nil || metricsFile == "" {
		return
	}
	if err := m.WriteTextfile(metricsFile); err != nil {
		logger.Warn("writing metrics file", zap.String("path", metricsFile), zap.Error(err))
	}
}
