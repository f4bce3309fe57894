// Package store persists the monitoring state: the reference dataset as a
// CSV file and the model as an opaque serialized artifact. Both are
// replaced atomically so concurrent readers see either the old or the new
// state, never a partial write.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phishguard/driftmon/internal/dataset"
	"github.com/phishguard/driftmon/internal/model"
)

// ErrReferenceUnavailable reports that no reference dataset is persisted
// at the configured path. The monitor stays NotReady until one is seeded.
var ErrReferenceUnavailable = errors.New("store: reference dataset not available")

// Store addresses the persisted reference dataset and model artifact.
type Store struct {
	referencePath string
	modelPath     string
	schema        dataset.Schema
}

// New creates a store over the configured paths.
func New(referencePath, modelPath string, schema dataset.Schema) *Store {
	return &Store{referencePath: referencePath, modelPath: modelPath, schema: schema}
}

// LoadReference reads the persisted reference dataset. A missing file maps
// to ErrReferenceUnavailable.
func (s *Store) LoadReference() (*dataset.Dataset, error) {
	f, err := os.Open(s.referencePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrReferenceUnavailable, s.referencePath)
		}
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()

	ds, err := dataset.ReadCSV(f, s.schema)
	if err != nil {
		return nil, fmt.Errorf("parse reference %s: %w", s.referencePath, err)
	}
	return ds, nil
}

// SaveReference atomically replaces the persisted reference with the
// feature columns of ds. Labels are never persisted with the reference.
func (s *Store) SaveReference(ds *dataset.Dataset) error {
	return s.atomicWrite(s.referencePath, func(f *os.File) error {
		return ds.WithoutLabels().WriteCSV(f)
	})
}

// SaveModel atomically replaces the persisted model artifact.
func (s *Store) SaveModel(c *model.Classifier) error {
	return s.atomicWrite(s.modelPath, func(f *os.File) error {
		return c.Encode(f)
	})
}

// LoadModel reads the persisted model artifact.
func (s *Store) LoadModel() (*model.Classifier, error) {
	f, err := os.Open(s.modelPath)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return model.Decode(f)
}

// atomicWrite writes through a temp file in the target directory and
// renames it over the destination.
func (s *Store) atomicWrite(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
