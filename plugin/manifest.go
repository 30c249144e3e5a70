package plugin

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// Manifest is the YAML form of a plugin unit.
//
//	name: ridge
//	supported_task_types: [regression]
//	factory: ridge
//	hyperparams:
//	  alpha: 1.0
type Manifest struct {
	Name               string         `yaml:"name"`
	SupportedTaskTypes []string       `yaml:"supported_task_types"`
	Factory            string         `yaml:"factory"`
	Hyperparams        map[string]any `yaml:"hyperparams,omitempty"`
}

// ParseManifest decodes a manifest, rejecting unknown keys.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "malformed manifest")
	}
	return &m, nil
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	return buf.Bytes(), nil
}

// loadManifest reads path and binds it to a registered factory. Fields the
// manifest leaves out stay absent from the unit so validation names them.
func loadManifest(path string, factories *Factories) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	u := &symbolUnit{source: path, symbols: map[string]any{}, notes: map[string]string{}}
	u.symbols[SymbolName] = m.Name
	if m.SupportedTaskTypes != nil {
		u.symbols[SymbolTaskTypes] = m.SupportedTaskTypes
	}

	switch fn, ok := factories.Lookup(m.Factory); {
	case m.Factory == "":
		u.notes[SymbolModel] = "manifest names no factory"
	case !ok:
		u.notes[SymbolModel] = fmt.Sprintf("unknown factory %q", m.Factory)
	default:
		model, err := fn(m.Hyperparams)
		if err != nil {
			return nil, errors.Wrapf(err, "factory %q", m.Factory)
		}
		u.symbols[SymbolModel] = model
	}
	return u, nil
}
