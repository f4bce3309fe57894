// Package generator is the default batch provider: it synthesizes labeled
// phishing-URL feature batches and can inject data or concept drift into
// the generating distributions.
package generator

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/phishguard/driftmon/internal/dataset"
)

// DriftKind selects how a batch's generating distribution is perturbed.
type DriftKind string

const (
	DriftNone    DriftKind = "none"
	DriftData    DriftKind = "data_drift"
	DriftConcept DriftKind = "concept_drift"
)

// ParseDriftKind validates a wire-level drift kind. The empty string maps
// to DriftNone.
func ParseDriftKind(s string) (DriftKind, error) {
	switch DriftKind(s) {
	case "", DriftNone:
		return DriftNone, nil
	case DriftData:
		return DriftData, nil
	case DriftConcept:
		return DriftConcept, nil
	default:
		return "", fmt.Errorf("generator: unknown drift kind %q", s)
	}
}

// Generator produces synthetic labeled batches over the default schema.
type Generator struct {
	schema dataset.Schema
	src    rand.Source

	phishingRate float64
}

// New creates a generator seeded for reproducibility. A seed of 0 is valid;
// callers wanting real randomness should seed from the clock.
func New(seed uint64) *Generator {
	return &Generator{
		schema:       dataset.DefaultSchema(),
		src:          rand.NewSource(seed),
		phishingRate: 0.3,
	}
}

// Generate produces n labeled records. Legitimate URLs are short, mostly
// HTTPS and almost never raw-IP; phishing URLs are long, special-character
// heavy and frequently raw-IP. data_drift lengthens every URL globally;
// concept_drift redraws phishing URL lengths from a near-legitimate
// distribution so the feature-label relationship shifts while the marginal
// still moves.
func (g *Generator) Generate(n int, kind DriftKind) (*dataset.Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("generator: batch size %d must be positive", n)
	}

	label := distuv.Bernoulli{P: g.phishingRate, Src: g.src}

	legitLength := distuv.Normal{Mu: 25, Sigma: 5, Src: g.src}
	phishLength := distuv.Normal{Mu: 60, Sigma: 15, Src: g.src}
	driftedPhishLength := distuv.Normal{Mu: 30, Sigma: 8, Src: g.src}

	legitSpecial := distuv.Poisson{Lambda: 1, Src: g.src}
	phishSpecial := distuv.Poisson{Lambda: 4, Src: g.src}

	legitIP := distuv.Bernoulli{P: 0.01, Src: g.src}
	phishIP := distuv.Bernoulli{P: 0.7, Src: g.src}
	legitHTTPS := distuv.Bernoulli{P: 0.9, Src: g.src}
	phishHTTPS := distuv.Bernoulli{P: 0.4, Src: g.src}

	batch := dataset.New(g.schema)
	for i := 0; i < n; i++ {
		y := label.Rand()

		var urlLength, special, hasIP, https float64
		if y == 1 {
			if kind == DriftConcept {
				urlLength = driftedPhishLength.Rand()
			} else {
				urlLength = phishLength.Rand()
			}
			special = phishSpecial.Rand()
			hasIP = phishIP.Rand()
			https = phishHTTPS.Rand()
		} else {
			urlLength = legitLength.Rand()
			special = legitSpecial.Rand()
			hasIP = legitIP.Rand()
			https = legitHTTPS.Rand()
		}
		if kind == DriftData {
			urlLength += 20
		}

		err := batch.Append(map[string]float64{
			"url_length":        urlLength,
			"num_special_chars": special,
			"has_ip_address":    hasIP,
			"https_token":       https,
		}, y, true)
		if err != nil {
			return nil, err
		}
	}
	return batch, nil
}
