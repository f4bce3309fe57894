// Package model is the default classification-model provider. The
// monitoring core never reads model internals; it depends only on the
// fit/predict surface and on the artifact being serializable.
package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
)

// Classifier is a regularized logistic-regression model over standardized
// features. It is the trained artifact the prediction boundary consumes.
type Classifier struct {
	Weights   []float64
	Bias      float64
	Means     []float64
	Stddevs   []float64
	Epochs    int
	TrainSize int
}

// TrainConfig bounds the fit procedure.
type TrainConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

// DefaultTrainConfig returns fit parameters adequate for the URL feature
// schema.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{LearningRate: 0.1, Epochs: 200, L2: 1e-4}
}

// Fit trains a classifier from scratch on the given feature matrix and
// binary labels.
func Fit(features [][]float64, labels []float64, config TrainConfig) (*Classifier, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("model: empty training set")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("model: %d feature rows but %d labels", len(features), len(labels))
	}
	dims := len(features[0])
	if dims == 0 {
		return nil, fmt.Errorf("model: records have no features")
	}

	means, stddevs := standardization(features)
	scaled := make([][]float64, len(features))
	for i, row := range features {
		s := make([]float64, dims)
		for j, v := range row {
			s[j] = (v - means[j]) / stddevs[j]
		}
		scaled[i] = s
	}

	weights := make([]float64, dims)
	bias := 0.0
	n := float64(len(scaled))
	for epoch := 0; epoch < config.Epochs; epoch++ {
		grad := make([]float64, dims)
		gradBias := 0.0
		for i, row := range scaled {
			p := sigmoid(dot(weights, row) + bias)
			err := p - labels[i]
			for j, v := range row {
				grad[j] += err * v
			}
			gradBias += err
		}
		for j := range weights {
			weights[j] -= config.LearningRate * (grad[j]/n + config.L2*weights[j])
		}
		bias -= config.LearningRate * gradBias / n
	}

	return &Classifier{
		Weights:   weights,
		Bias:      bias,
		Means:     means,
		Stddevs:   stddevs,
		Epochs:    config.Epochs,
		TrainSize: len(features),
	}, nil
}

// PredictProba returns the phishing probability for one record.
func (c *Classifier) PredictProba(features []float64) (float64, error) {
	if len(features) != len(c.Weights) {
		return 0, fmt.Errorf("model: expected %d features, got %d", len(c.Weights), len(features))
	}
	z := c.Bias
	for j, v := range features {
		z += c.Weights[j] * (v - c.Means[j]) / c.Stddevs[j]
	}
	return sigmoid(z), nil
}

// Predict returns the hard class at the 0.5 boundary.
func (c *Classifier) Predict(features []float64) (float64, error) {
	p, err := c.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Encode serializes the artifact.
func (c *Classifier) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("model: encode artifact: %w", err)
	}
	return nil
}

// Decode deserializes an artifact written by Encode.
func Decode(r io.Reader) (*Classifier, error) {
	var c Classifier
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("model: decode artifact: %w", err)
	}
	return &c, nil
}

func standardization(features [][]float64) (means, stddevs []float64) {
	dims := len(features[0])
	means = make([]float64, dims)
	stddevs = make([]float64, dims)
	n := float64(len(features))
	for _, row := range features {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range features {
		for j, v := range row {
			d := v - means[j]
			stddevs[j] += d * d
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / n)
		if stddevs[j] == 0 {
			stddevs[j] = 1
		}
	}
	return means, stddevs
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
