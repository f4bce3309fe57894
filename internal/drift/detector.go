// Package drift decides, feature by feature and in aggregate, whether a
// batch's distribution differs significantly from a reference dataset.
package drift

import (
	"errors"
	"fmt"

	"github.com/phishguard/driftmon/internal/dataset"
)

// DefaultPValueThreshold is the significance cutoff below which a feature
// is declared drifted. A fixed policy constant, not data-derived.
const DefaultPValueThreshold = 0.05

// ErrSchemaMismatch reports that the reference and batch do not expose the
// same declared feature set. It aborts the cycle with no partial report.
var ErrSchemaMismatch = errors.New("drift: reference and batch schemas differ")

// Test kinds reported per feature.
const (
	TestKS        = "KS"
	TestChiSquare = "Chi-Square"
)

// FeatureResult is the per-feature verdict.
type FeatureResult struct {
	Test         string  `json:"test"`
	Statistic    float64 `json:"statistic"`
	PValue       float64 `json:"p_value"`
	Drift        bool    `json:"drift_detected"`
	Inconclusive bool    `json:"inconclusive,omitempty"`
}

// Report maps every declared feature to its verdict.
type Report map[string]FeatureResult

// DriftedFeatures returns the names of features flagged as drifted.
func (r Report) DriftedFeatures() []string {
	var names []string
	for name, res := range r {
		if res.Drift {
			names = append(names, name)
		}
	}
	return names
}

// Aggregation policies for the global drift decision.
const (
	AggregateAny        = "any"        // OR across features (default)
	AggregateMajority   = "majority"   // more than half of features drifted
	AggregateBonferroni = "bonferroni" // threshold divided by feature count
)

// Config controls detection policy.
type Config struct {
	PValueThreshold float64 `json:"p_value_threshold"`
	Aggregation     string  `json:"aggregation"`
}

// DefaultConfig returns the documented policy: 0.05 threshold, OR
// aggregation with no multiple-comparison correction.
func DefaultConfig() Config {
	return Config{PValueThreshold: DefaultPValueThreshold, Aggregation: AggregateAny}
}

// Detector compares batches against a fixed reference dataset. It holds no
// mutable state and performs no side effects.
type Detector struct {
	config    Config
	reference *dataset.Dataset
}

// NewDetector binds a detector to a reference dataset.
func NewDetector(reference *dataset.Dataset, config Config) (*Detector, error) {
	if reference == nil {
		return nil, fmt.Errorf("drift: reference dataset cannot be nil")
	}
	if config.PValueThreshold <= 0 || config.PValueThreshold >= 1 {
		return nil, fmt.Errorf("drift: p-value threshold %v outside (0,1)", config.PValueThreshold)
	}
	switch config.Aggregation {
	case AggregateAny, AggregateMajority, AggregateBonferroni:
	default:
		return nil, fmt.Errorf("drift: unknown aggregation policy %q", config.Aggregation)
	}
	return &Detector{config: config, reference: reference}, nil
}

// Detect runs the per-feature tests and aggregates them into a global
// verdict. The batch must declare exactly the reference's feature set; a
// mismatch in either direction is a schema error with no partial report.
func (d *Detector) Detect(batch *dataset.Dataset) (bool, Report, error) {
	if len(batch.Schema.Features) != len(d.reference.Schema.Features) {
		return false, nil, fmt.Errorf("%w: reference declares %d features, batch declares %d",
			ErrSchemaMismatch, len(d.reference.Schema.Features), len(batch.Schema.Features))
	}

	report := make(Report, len(d.reference.Schema.Features))

	perFeature := d.config.PValueThreshold
	if d.config.Aggregation == AggregateBonferroni {
		perFeature = d.config.PValueThreshold / float64(len(d.reference.Schema.Features))
	}

	for _, feature := range d.reference.Schema.Features {
		refValues, err := d.reference.Column(feature.Name)
		if err != nil {
			return false, nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
		batchValues, err := batch.Column(feature.Name)
		if err != nil {
			return false, nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}

		var result FeatureResult
		switch feature.Kind {
		case dataset.Continuous:
			statistic, p := ksTest(refValues, batchValues)
			result = FeatureResult{Test: TestKS, Statistic: statistic, PValue: p}
		case dataset.Categorical:
			statistic, p, inconclusive := chiSquareTest(refValues, batchValues)
			result = FeatureResult{Test: TestChiSquare, Statistic: statistic, PValue: p, Inconclusive: inconclusive}
		default:
			return false, nil, fmt.Errorf("drift: feature %q has unknown kind %d", feature.Name, feature.Kind)
		}

		result.Drift = !result.Inconclusive && result.PValue < perFeature
		report[feature.Name] = result
	}

	return d.aggregate(report), report, nil
}

func (d *Detector) aggregate(report Report) bool {
	drifted := 0
	for _, res := range report {
		if res.Drift {
			drifted++
		}
	}
	switch d.config.Aggregation {
	case AggregateMajority:
		return drifted*2 > len(report)
	default: // any, bonferroni (corrected per-feature threshold, still OR)
		return drifted > 0
	}
}
