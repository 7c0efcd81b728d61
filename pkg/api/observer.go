package api

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Strategy is the calculation path selected for a property request.
type Strategy string

const (
	StrategyHandler   Strategy = "handler"
	StrategyPrimary   Strategy = "primary"
	StrategyReference Strategy = "reference"
)

// FlashEvent describes one flash attempt of the state controller.
type FlashEvent struct {
	A, B string
	// ValueA and ValueB are the raw (denormalized) inputs sent to the backend.
	ValueA, ValueB float64
	Guessed        bool
}

// Observer receives callbacks from fluids for logging and metrics.
//
// Implementations should be fast and non-blocking; they run inline with the
// calculation.
type Observer interface {
	// OnFlash is called after every SetState, with err set when the flash
	// (including any fallback) failed.
	OnFlash(ctx context.Context, f Fluid, ev FlashEvent, err error, d time.Duration)

	// OnPhaseInferred is called when phase inference recorded a phase.
	// manual is true when the fallback classifier was used.
	OnPhaseInferred(ctx context.Context, f Fluid, phase PhaseMetadata, manual bool)

	// OnTwoPhaseFallback is called after the quality search ends.
	OnTwoPhaseFallback(ctx context.Context, f Fluid, q float64, iterations int, err error)

	// OnPropertyComputed is called after each property request.
	OnPropertyComputed(ctx context.Context, f Fluid, req PropertyRequest, s Strategy, err error, d time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlash(ctx context.Context, f Fluid, ev FlashEvent, err error, d time.Duration) {}
func (NoopObserver) OnPhaseInferred(ctx context.Context, f Fluid, phase PhaseMetadata, manual bool) {}
func (NoopObserver) OnTwoPhaseFallback(ctx context.Context, f Fluid, q float64, iterations int, err error) {
}
func (NoopObserver) OnPropertyComputed(ctx context.Context, f Fluid, req PropertyRequest, s Strategy, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlash(ctx context.Context, f Fluid, ev FlashEvent, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnFlash(ctx, f, ev, err, d)
	}
}

func (c *CompositeObserver) OnPhaseInferred(ctx context.Context, f Fluid, phase PhaseMetadata, manual bool) {
	for _, o := range c.observers {
		o.OnPhaseInferred(ctx, f, phase, manual)
	}
}

func (c *CompositeObserver) OnTwoPhaseFallback(ctx context.Context, f Fluid, q float64, iterations int, err error) {
	for _, o := range c.observers {
		o.OnTwoPhaseFallback(ctx, f, q, iterations, err)
	}
}

func (c *CompositeObserver) OnPropertyComputed(ctx context.Context, f Fluid, req PropertyRequest, s Strategy, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnPropertyComputed(ctx, f, req, s, err, d)
	}
}

// LoggingObserver writes structured logs using zap.
type LoggingObserver struct {
	Logger *zap.Logger
}

// NewLoggingObserver creates an Observer that logs fluid events using the
// provided logger. If logger is nil, zap.L() is used.
func NewLoggingObserver(logger *zap.Logger) Observer {
	if logger == nil {
		logger = zap.L()
	}
	return &LoggingObserver{Logger: logger}
}

func fluidFields(f Fluid) []zap.Field {
	if f == nil {
		return nil
	}
	return []zap.Field{
		zap.String("fluid", f.Composition()),
		zap.String("fluid_id", f.ID()),
	}
}

func (o *LoggingObserver) OnFlash(ctx context.Context, f Fluid, ev FlashEvent, err error, d time.Duration) {
	fields := append(fluidFields(f),
		zap.String("a", ev.A),
		zap.Float64("value_a", ev.ValueA),
		zap.String("b", ev.B),
		zap.Float64("value_b", ev.ValueB),
		zap.Bool("guessed", ev.Guessed),
		zap.Duration("duration", d),
	)
	if err != nil {
		o.Logger.Error("flash_failed", append(fields, zap.Error(err))...)
		return
	}
	o.Logger.Debug("flash", fields...)
}

func (o *LoggingObserver) OnPhaseInferred(ctx context.Context, f Fluid, phase PhaseMetadata, manual bool) {
	o.Logger.Debug("phase_inferred", append(fluidFields(f),
		zap.String("phase", phase.Key),
		zap.Bool("manual", manual),
	)...)
}

func (o *LoggingObserver) OnTwoPhaseFallback(ctx context.Context, f Fluid, q float64, iterations int, err error) {
	fields := append(fluidFields(f),
		zap.Float64("quality", q),
		zap.Int("iterations", iterations),
	)
	if err != nil {
		o.Logger.Error("two_phase_fallback_failed", append(fields, zap.Error(err))...)
		return
	}
	o.Logger.Info("two_phase_fallback", fields...)
}

func (o *LoggingObserver) OnPropertyComputed(ctx context.Context, f Fluid, req PropertyRequest, s Strategy, err error, d time.Duration) {
	fields := append(fluidFields(f),
		zap.String("property", req.String()),
		zap.String("strategy", string(s)),
		zap.Duration("duration", d),
	)
	if err != nil {
		o.Logger.Error("property_failed", append(fields, zap.Error(err))...)
		return
	}
	o.Logger.Debug("property", fields...)
}

// BasicMetrics collects simple counters and aggregate flash durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	flashes            atomic.Int64
	flashFailures      atomic.Int64
	totalFlashDuration atomic.Int64 // nanoseconds
	manualPhases       atomic.Int64
	fallbacks          atomic.Int64
	fallbackFailures   atomic.Int64
	byHandler          atomic.Int64
	byPrimary          atomic.Int64
	byReference        atomic.Int64
	propertyFailures   atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Flashes          int64
	FlashFailures    int64
	AvgFlashDuration time.Duration

	ManualPhases     int64
	Fallbacks        int64
	FallbackFailures int64

	HandlerProperties   int64
	PrimaryProperties   int64
	ReferenceProperties int64
	PropertyFailures    int64
}

func (m *BasicMetrics) OnFlash(ctx context.Context, f Fluid, ev FlashEvent, err error, d time.Duration) {
	if err != nil {
		m.flashFailures.Add(1)
		return
	}
	m.flashes.Add(1)
	m.totalFlashDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnPhaseInferred(ctx context.Context, f Fluid, phase PhaseMetadata, manual bool) {
	if manual {
		m.manualPhases.Add(1)
	}
}

func (m *BasicMetrics) OnTwoPhaseFallback(ctx context.Context, f Fluid, q float64, iterations int, err error) {
	m.fallbacks.Add(1)
	if err != nil {
		m.fallbackFailures.Add(1)
	}
}

func (m *BasicMetrics) OnPropertyComputed(ctx context.Context, f Fluid, req PropertyRequest, s Strategy, err error, d time.Duration) {
	if err != nil {
		m.propertyFailures.Add(1)
		return
	}
	switch s {
	case StrategyHandler:
		m.byHandler.Add(1)
	case StrategyPrimary:
		m.byPrimary.Add(1)
	case StrategyReference:
		m.byReference.Add(1)
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	flashes := m.flashes.Load()
	totalNs := m.totalFlashDuration.Load()

	var avg time.Duration
	if flashes > 0 {
		avg = time.Duration(totalNs / flashes)
	}

	return BasicMetricsSnapshot{
		Flashes:             flashes,
		FlashFailures:       m.flashFailures.Load(),
		AvgFlashDuration:    avg,
		ManualPhases:        m.manualPhases.Load(),
		Fallbacks:           m.fallbacks.Load(),
		FallbackFailures:    m.fallbackFailures.Load(),
		HandlerProperties:   m.byHandler.Load(),
		PrimaryProperties:   m.byPrimary.Load(),
		ReferenceProperties: m.byReference.Load(),
		PropertyFailures:    m.propertyFailures.Load(),
	}
}
