// Package retrain produces a fresh model and a fresh reference baseline
// from a newly drifted, labeled batch. Training is windowed and stateless:
// the model is fit on the triggering batch alone, and the batch's feature
// columns become the next cycle's reference. This bounds memory per retrain
// at the cost of discarding history.
package retrain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/phishguard/driftmon/internal/dataset"
	"github.com/phishguard/driftmon/internal/model"
	"github.com/phishguard/driftmon/internal/store"
)

// ErrMissingLabels reports a batch without the label column. Every batch
// handed to the retrainer must be labeled, including live batches; the
// batch provider carries that obligation.
var ErrMissingLabels = errors.New("retrain: batch has no label column")

// Trainer fits a classifier from a feature matrix and labels. The default
// implementation wraps the model package; tests substitute failing ones.
type Trainer interface {
	Fit(features [][]float64, labels []float64) (*model.Classifier, error)
}

// TrainerFunc adapts a function to the Trainer interface.
type TrainerFunc func(features [][]float64, labels []float64) (*model.Classifier, error)

func (f TrainerFunc) Fit(features [][]float64, labels []float64) (*model.Classifier, error) {
	return f(features, labels)
}

// DefaultTrainer fits the stock logistic-regression classifier.
func DefaultTrainer() Trainer {
	return TrainerFunc(func(features [][]float64, labels []float64) (*model.Classifier, error) {
		return model.Fit(features, labels, model.DefaultTrainConfig())
	})
}

// Retrainer replaces the persisted model and reference from a labeled batch.
type Retrainer struct {
	logger  *zap.SugaredLogger
	trainer Trainer
	store   *store.Store
}

// New creates a retrainer writing through the given store.
func New(logger *zap.SugaredLogger, trainer Trainer, st *store.Store) *Retrainer {
	return &Retrainer{logger: logger, trainer: trainer, store: st}
}

// Retrain fits a new model on the batch and, on success, persists the
// model and replaces the reference with the batch's feature columns. Any
// failure leaves the prior persisted state untouched; the caller treats
// the error as a failed retrain, not a failed cycle.
func (r *Retrainer) Retrain(ctx context.Context, batch *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	labels, err := batch.Labels()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingLabels, err)
	}

	r.logger.Infow("Training replacement model on drifted batch", "batch_size", batch.Len())
	clf, err := r.trainer.Fit(batch.FeatureMatrix(), labels)
	if err != nil {
		return fmt.Errorf("fit replacement model: %w", err)
	}

	if err := r.store.SaveModel(clf); err != nil {
		return fmt.Errorf("persist replacement model: %w", err)
	}
	if err := r.store.SaveReference(batch); err != nil {
		return fmt.Errorf("persist new reference: %w", err)
	}

	r.logger.Infow("Retrain complete, reference replaced by latest batch",
		"train_size", clf.TrainSize)
	return nil
}
