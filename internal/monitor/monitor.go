// Package monitor owns the cross-cycle monitoring state and runs one
// detection-and-retrain cycle per invocation. It is the only writer of the
// reference dataset and the detector bound to it.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishguard/driftmon/internal/dataset"
	"github.com/phishguard/driftmon/internal/drift"
	"github.com/phishguard/driftmon/internal/generator"
	"github.com/phishguard/driftmon/internal/retrain"
	"github.com/phishguard/driftmon/internal/store"
)

// BatchProvider supplies one cycle's worth of labeled data. The monitor
// treats drift injection as opaque upstream behavior.
type BatchProvider interface {
	Generate(n int, kind generator.DriftKind) (*dataset.Dataset, error)
}

// CycleResult is the immutable per-cycle output handed to callers.
type CycleResult struct {
	ID                  string        `json:"id"`
	Timestamp           time.Time     `json:"timestamp"`
	BatchSize           int           `json:"batch_size"`
	DriftKind           string        `json:"drift_kind"`
	DriftDetected       bool          `json:"drift_detected"`
	Retrained           bool          `json:"retrained"`
	Report              drift.Report  `json:"drift_report,omitempty"`
	ReferenceGeneration uint64        `json:"reference_generation"`
	Duration            time.Duration `json:"duration_ns"`
	Error               string        `json:"error,omitempty"`
}

// Monitor runs monitoring cycles against a held reference dataset.
//
// State machine: NotReady (no reference loadable) and Ready (reference
// held, detector bound to it). The reference used for detection in cycle N
// is always the outcome of cycle N-1; it is never mutated mid-cycle.
// Replaying a batch is deliberately not idempotent: a retrain moves the
// baseline.
type Monitor struct {
	logger      *zap.SugaredLogger
	driftConfig drift.Config
	store       *store.Store
	provider    BatchProvider
	retrainer   *retrain.Retrainer

	// cycleMu serializes ProcessBatch end to end. At most one
	// detect-retrain-reload sequence runs at a time, so the persisted model
	// and reference always come from the same batch.
	cycleMu sync.Mutex

	mu         sync.RWMutex
	reference  *dataset.Dataset
	detector   *drift.Detector
	generation uint64

	onCycleComplete func(*CycleResult)
}

// New creates a monitor and attempts the initial reference load. A failed
// load is not an error: the monitor starts NotReady and retries on the
// next cycle.
func New(logger *zap.SugaredLogger, driftConfig drift.Config, st *store.Store, provider BatchProvider, retrainer *retrain.Retrainer) (*Monitor, error) {
	m := &Monitor{
		logger:      logger,
		driftConfig: driftConfig,
		store:       st,
		provider:    provider,
		retrainer:   retrainer,
	}
	if err := m.loadReference(); err != nil {
		logger.Warnw("Starting without reference data", "error", err)
	}
	return m, nil
}

// SetCycleCompleteCallback registers a callback invoked synchronously with
// every returned cycle result, error results included.
func (m *Monitor) SetCycleCompleteCallback(callback func(*CycleResult)) {
	m.onCycleComplete = callback
}

// Ready reports whether a reference dataset is currently held.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detector != nil
}

// Generation returns the reference generation counter. It increments on
// every successful reference load, so readers can detect staleness.
func (m *Monitor) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// ReferenceSize returns the record count of the held reference, or 0 when
// NotReady.
func (m *Monitor) ReferenceSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reference == nil {
		return 0
	}
	return m.reference.Len()
}

// ProcessBatch runs one end-to-end cycle: pull a batch, detect drift
// against the held reference, retrain and reload the reference when drift
// is found. Concurrent calls are serialized. Errors surface in the result's Error field rather than as a
// returned error; a failed retrain still yields a drift-positive result
// with the prior reference left authoritative.
func (m *Monitor) ProcessBatch(ctx context.Context, batchSize int, kind generator.DriftKind) *CycleResult {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	started := time.Now()
	result := &CycleResult{
		ID:        uuid.NewString(),
		Timestamp: started,
		BatchSize: batchSize,
		DriftKind: string(kind),
	}
	defer func() {
		result.Duration = time.Since(started)
		if m.onCycleComplete != nil {
			m.onCycleComplete(result)
		}
	}()

	if !m.Ready() {
		if err := m.loadReference(); err != nil {
			m.logger.Errorw("Reference data not available", "error", err)
			result.Error = "reference data not available; seed the model first"
			return result
		}
	}

	batch, err := m.provider.Generate(batchSize, kind)
	if err != nil {
		m.logger.Errorw("Batch provider failed", "error", err)
		result.Error = err.Error()
		return result
	}

	m.mu.RLock()
	detector := m.detector
	generation := m.generation
	m.mu.RUnlock()
	result.ReferenceGeneration = generation

	detected, report, err := detector.Detect(batch.WithoutLabels())
	if err != nil {
		if errors.Is(err, drift.ErrSchemaMismatch) {
			m.logger.Errorw("Batch schema does not match reference", "error", err)
		} else {
			m.logger.Errorw("Drift detection failed", "error", err)
		}
		result.Error = err.Error()
		return result
	}
	result.DriftDetected = detected
	result.Report = report

	if !detected {
		m.logger.Infow("Cycle healthy, no significant drift",
			"cycle_id", result.ID, "batch_size", batch.Len(), "generation", generation)
		return result
	}

	m.logger.Warnw("Drift detected, triggering retrain",
		"cycle_id", result.ID,
		"features", report.DriftedFeatures(),
		"generation", generation)

	if err := m.retrainer.Retrain(ctx, batch); err != nil {
		// Prior reference and model stay authoritative; subsequent cycles
		// keep flagging drift until a retrain succeeds.
		m.logger.Errorw("Retrain failed, keeping previous reference and model", "error", err)
		return result
	}
	result.Retrained = true

	if err := m.loadReference(); err != nil {
		m.logger.Errorw("Reference reload failed after retrain", "error", err)
		result.Error = err.Error()
		return result
	}
	result.ReferenceGeneration = m.Generation()
	return result
}

// loadReference reads the persisted reference, binds a fresh detector to
// it and bumps the generation counter. On failure the monitor drops to
// NotReady.
func (m *Monitor) loadReference() error {
	ref, err := m.store.LoadReference()
	if err != nil {
		m.mu.Lock()
		m.reference = nil
		m.detector = nil
		m.mu.Unlock()
		return err
	}
	detector, err := drift.NewDetector(ref, m.driftConfig)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.reference = ref
	m.detector = detector
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	m.logger.Infow("Reference data loaded", "records", ref.Len(), "generation", generation)
	return nil
}
