package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope for pricing metrics.
const MeterName = "github.com/erp/pricing"

// RuleTypeListPrice labels resolutions that fell back to the list price.
const RuleTypeListPrice = "LIST_PRICE"

// PricingMetrics records price resolution metrics.
type PricingMetrics struct {
	resolutions    *Counter
	failures       *Counter
	marginWarnings *Counter
	skippedRules   *Counter
	cacheLookups   *Counter
	duration       *Histogram
}

// NewPricingMetrics creates the pricing instruments on the given meter.
func NewPricingMetrics(meter metric.Meter) (*PricingMetrics, error) {
	resolutions, err := NewCounter(meter, "pricing.resolutions",
		"Successful price resolutions by applied rule type", "{resolution}")
	if err != nil {
		return nil, err
	}
	failures, err := NewCounter(meter, "pricing.resolution_failures",
		"Failed price resolutions by error code", "{resolution}")
	if err != nil {
		return nil, err
	}
	marginWarnings, err := NewCounter(meter, "pricing.margin_warnings",
		"Resolutions whose margin fell below the configured minimum", "{resolution}")
	if err != nil {
		return nil, err
	}
	skippedRules, err := NewCounter(meter, "pricing.rules_skipped",
		"Inconsistent rules skipped during resolution", "{rule}")
	if err != nil {
		return nil, err
	}
	cacheLookups, err := NewCounter(meter, "pricing.context_cache.lookups",
		"Pricing context cache lookups by outcome", "{lookup}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "pricing.resolve.duration",
		Description: "Price resolution latency",
		Unit:        "s",
		Boundaries:  ResolveDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &PricingMetrics{
		resolutions:    resolutions,
		failures:       failures,
		marginWarnings: marginWarnings,
		skippedRules:   skippedRules,
		cacheLookups:   cacheLookups,
		duration:       duration,
	}, nil
}

// NewNoopPricingMetrics returns metrics backed by a no-op meter.
func NewNoopPricingMetrics() *PricingMetrics {
	m, _ := NewPricingMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordResolution records a successful resolution.
// An empty ruleType means the list price was used.
func (m *PricingMetrics) RecordResolution(ctx context.Context, ruleType string, marginWarning bool, skipped int, d time.Duration) {
	if ruleType == "" {
		ruleType = RuleTypeListPrice
	}
	m.resolutions.Inc(ctx, AttrRuleType.String(ruleType))
	m.duration.RecordDuration(ctx, d, AttrOutcome.String("resolved"))
	if marginWarning {
		m.marginWarnings.Inc(ctx, AttrRuleType.String(ruleType))
	}
	if skipped > 0 {
		m.skippedRules.Add(ctx, int64(skipped))
	}
}

// RecordFailure records a failed resolution.
func (m *PricingMetrics) RecordFailure(ctx context.Context, code string, d time.Duration) {
	m.failures.Inc(ctx, AttrErrorCode.String(code))
	m.duration.RecordDuration(ctx, d, AttrOutcome.String("error"))
}

// RecordCacheLookup records a context cache hit or miss.
func (m *PricingMetrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.Inc(ctx, AttrCacheName.String(cache), AttrOutcome.String(outcome))
}
