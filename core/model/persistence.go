package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// SaveModel gob-encodes model into filename. Only exported fields are
// written; gonum matrices encode through their MarshalBinary methods.
//
//	reg := linear.NewRidge()
//	// ... Fit ...
//	err := model.SaveModel(reg, "artifacts/ridge.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()

	if err := SaveModelToWriter(model, file); err != nil {
		// leave no partial artifact behind
		_ = os.Remove(filename)
		return err
	}
	return nil
}

// LoadModel decodes a model written by SaveModel into model, which must be a
// pointer of the same concrete type.
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter gob-encodes model into w.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader gob-decodes a model from r.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
