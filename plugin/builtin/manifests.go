package builtin

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/plugin"
)

// DefaultManifests returns one manifest per catalogue entry.
func DefaultManifests() []*plugin.Manifest {
	entries := Catalogue()
	out := make([]*plugin.Manifest, 0, len(entries))
	for _, e := range entries {
		out = append(out, &plugin.Manifest{
			Name:               e.Factory,
			SupportedTaskTypes: []string{string(e.TaskType)},
			Factory:            e.Factory,
			Hyperparams:        merge(e.Defaults),
		})
	}
	return out
}

// WriteManifests writes the default manifests into dir, creating it when
// needed. Existing files are left alone unless overwrite is set. It returns
// the paths it wrote.
func WriteManifests(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create plugin directory")
	}
	var written []string
	for _, m := range DefaultManifests() {
		path := filepath.Join(dir, m.Name+".yaml")
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		data, err := m.Marshal()
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, errors.Wrapf(err, "write %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}

// EnsureManifests seeds dir with the defaults when it does not exist yet.
// An existing directory, even an empty one, is taken as deliberate.
func EnsureManifests(dir string) (bool, error) {
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat plugin directory")
	}
	_, err := WriteManifests(dir, false)
	return err == nil, err
}
