package model

import (
	"sync"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// StateManager tracks whether an estimator is fitted and the shape it was
// fitted on. Estimators hold it by composition. The exported fields are
// written by gob when an artifact is persisted.
type StateManager struct {
	mu sync.RWMutex

	Fitted    bool
	NFeatures int
	NSamples  int
	NOutputs  int
}

// NewStateManager returns an unfitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted records the fitted shape and marks the estimator fitted.
func (s *StateManager) SetFitted(nSamples, nFeatures, nOutputs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NSamples = nSamples
	s.NFeatures = nFeatures
	s.NOutputs = nOutputs
}

// Reset returns the state to unfitted.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
	s.NOutputs = 0
}

// Dimensions returns the fitted sample, feature and output counts.
func (s *StateManager) Dimensions() (nSamples, nFeatures, nOutputs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NSamples, s.NFeatures, s.NOutputs
}

// RequireFitted returns a NotFittedError for modelName.method when the
// estimator has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckFeatures returns a DimensionError when X's column count differs from
// the fitted feature count.
func (s *StateManager) CheckFeatures(op string, nFeatures int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if nFeatures != s.NFeatures {
		return errors.NewDimensionError(op, s.NFeatures, nFeatures, 1)
	}
	return nil
}
