package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
)

// Registry discovers plugin units in a directory. It keeps no state between
// calls; every Discover re-scans the directory.
type Registry struct {
	strict    bool
	logger    log.Logger
	factories *Factories
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes the first invalid unit abort discovery.
func WithStrict(strict bool) Option { return func(r *Registry) { r.strict = strict } }

// WithLogger sets the logger used for skipped units.
func WithLogger(l log.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithFactories sets the factories manifest units bind to.
func WithFactories(f *Factories) Option { return func(r *Registry) { r.factories = f } }

// NewRegistry creates a lenient registry with no factories.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("registry")
	}
	if r.factories == nil {
		r.factories = NewFactories()
	}
	return r
}

// Strict reports whether the registry aborts on the first invalid unit.
func (r *Registry) Strict() bool { return r.strict }

// UnitStatus is the outcome of loading and validating one unit.
type UnitStatus struct {
	File      string     `json:"file"`
	Name      string     `json:"name,omitempty"`
	TaskTypes []TaskType `json:"supported_task_types,omitempty"`
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
}

// Discover loads every unit in dir and returns the valid ones that support
// taskType, in file name order. In strict mode the first DiscoveryError is
// returned; otherwise invalid units are logged, raised as warnings and
// skipped.
func (r *Registry) Discover(ctx context.Context, dir string, taskType TaskType) ([]Descriptor, error) {
	files, err := candidates(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var out []Descriptor
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		desc, derr := r.load(file, seen)
		if derr != nil {
			if r.strict {
				return nil, derr
			}
			r.skip(file, derr)
			continue
		}
		if !desc.Supports(taskType) {
			continue
		}
		desc.Index = len(out)
		out = append(out, desc)
	}

	r.logger.Info("plugins discovered",
		log.PhaseKey, log.PhaseDiscovery,
		log.TaskTypeKey, string(taskType),
		log.PluginCountKey, len(out),
		log.StrictKey, r.strict,
	)
	return out, nil
}

// Inspect reports the status of every unit in dir without filtering by task
// type and without failing on invalid units.
func (r *Registry) Inspect(dir string) ([]UnitStatus, error) {
	files, err := candidates(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]string)
	out := make([]UnitStatus, 0, len(files))
	for _, file := range files {
		st := UnitStatus{File: filepath.Base(file)}
		desc, derr := r.load(file, seen)
		if derr != nil {
			var de *errors.DiscoveryError
			if errors.As(derr, &de) {
				st.Reason = de.Reason
				if de.Err != nil {
					st.Reason = fmt.Sprintf("%s: %v", de.Reason, de.Err)
				}
			} else {
				st.Reason = derr.Error()
			}
		} else {
			st.Name = desc.Name
			st.TaskTypes = desc.TaskTypes
			st.Valid = true
		}
		out = append(out, st)
	}
	return out, nil
}

// load opens, validates and de-duplicates one unit. Panics raised by the
// unit while loading are returned as errors.
func (r *Registry) load(file string, seen map[string]string) (Descriptor, error) {
	base := filepath.Base(file)

	desc, err := errors.SafeValue("plugin.load "+base, func() (Descriptor, error) {
		unit, err := r.open(file)
		if err != nil {
			return Descriptor{}, errors.NewDiscoveryError(base, "load failed", err)
		}
		d, reason := resolve(unit)
		if reason != "" {
			return Descriptor{}, errors.NewDiscoveryError(base, reason, nil)
		}
		return d, nil
	})
	if err != nil {
		var de *errors.DiscoveryError
		if !errors.As(err, &de) {
			err = errors.NewDiscoveryError(base, "load failed", err)
		}
		return Descriptor{}, err
	}

	if first, dup := seen[desc.Name]; dup {
		return Descriptor{}, errors.NewDiscoveryError(base,
			fmt.Sprintf("duplicate plugin name %q, first defined in %s", desc.Name, first), nil)
	}
	seen[desc.Name] = base
	return desc, nil
}

func (r *Registry) open(file string) (Unit, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".so":
		return loadShared(file)
	default:
		return loadManifest(file, r.factories)
	}
}

func (r *Registry) skip(file string, err error) {
	r.logger.Warn("skipping plugin unit",
		log.PhaseKey, log.PhaseDiscovery,
		log.PluginUnitKey, filepath.Base(file),
		log.PluginStatusKey, log.StatusSkipped,
		log.ErrAttrKey, err,
	)
	errors.Warn(err)
}

// candidates lists unit files in dir in name order. Names starting with "_"
// or "." and extensions other than .yaml, .yml and .so are reserved.
func candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read plugin directory %s", dir)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yaml", ".yml", ".so":
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}
