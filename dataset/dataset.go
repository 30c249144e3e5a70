// Package dataset turns an uploaded table into the processed train and
// validation matrices the orchestrator consumes, and stores them in a
// processed directory.
package dataset

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// Files in a processed directory.
const (
	MetadataFile = "metadata.json"
	XTrainFile   = "X_train.bin"
	YTrainFile   = "y_train.bin"
	XValFile     = "X_val.bin"
	YValFile     = "y_val.bin"
)

// Metadata describes a processed dataset.
type Metadata struct {
	ProblemType     string              `json:"problem_type"`
	Target          string              `json:"target,omitempty"`
	NFeatures       int                 `json:"n_features"`
	TrainSamples    int                 `json:"train_samples"`
	ValSamples      int                 `json:"val_samples"`
	FeatureNames    []string            `json:"feature_names"`
	NumericCols     []string            `json:"numeric_cols"`
	CategoricalCols []string            `json:"categorical_cols"`
	Encoders        map[string][]string `json:"encoders,omitempty"`
	DroppedCols     []string            `json:"dropped_cols,omitempty"`
	PCAComponents   int                 `json:"pca_components,omitempty"`
	Scaled          bool                `json:"scaled"`
	Source          string              `json:"source,omitempty"`
}

// Dataset is a processed dataset. For clustering only XTrain is set.
type Dataset struct {
	XTrain, YTrain *mat.Dense
	XVal, YVal     *mat.Dense
	Metadata       Metadata
}

// Save writes metadata.json and the matrices into dir.
func (d *Dataset) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create processed directory")
	}
	meta, err := json.MarshalIndent(d.Metadata, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), meta, 0o644); err != nil {
		return errors.Wrap(err, "write metadata")
	}

	for _, m := range []struct {
		name string
		m    *mat.Dense
	}{
		{XTrainFile, d.XTrain}, {YTrainFile, d.YTrain}, {XValFile, d.XVal}, {YValFile, d.YVal},
	} {
		if m.m == nil {
			continue
		}
		if err := writeMatrix(filepath.Join(dir, m.name), m.m); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a directory written by Save. Missing matrix files are left
// nil; a missing metadata.json is an error.
func Load(dir string) (*Dataset, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, errors.Wrap(err, "read metadata")
	}
	d := &Dataset{}
	if err := json.Unmarshal(raw, &d.Metadata); err != nil {
		return nil, errors.Wrap(err, "decode metadata")
	}

	for _, m := range []struct {
		name string
		dst  **mat.Dense
	}{
		{XTrainFile, &d.XTrain}, {YTrainFile, &d.YTrain}, {XValFile, &d.XVal}, {YValFile, &d.YVal},
	} {
		path := filepath.Join(dir, m.name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if *m.dst, err = readMatrix(path); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func writeMatrix(path string, m *mat.Dense) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", filepath.Base(path))
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", filepath.Base(path))
		}
	}()
	w := bufio.NewWriter(file)
	if _, err := m.MarshalBinaryTo(w); err != nil {
		return errors.Wrapf(err, "encode %s", filepath.Base(path))
	}
	return w.Flush()
}

func readMatrix(path string) (*mat.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filepath.Base(path))
	}
	defer file.Close()
	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(bufio.NewReader(file)); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return &m, nil
}
