package plugin

import (
	goplugin "plugin"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// sharedUnit exposes the symbols of a Go shared object. Exported variables
// come back as pointers, which Validate dereferences.
type sharedUnit struct {
	source string
	p      *goplugin.Plugin
}

func (u *sharedUnit) Source() string { return u.source }

func (u *sharedUnit) Lookup(symbol string) (any, bool) {
	sym, err := u.p.Lookup(symbol)
	if err != nil {
		return nil, false
	}
	return sym, true
}

// loadShared opens a .so unit. The object must be built against the same
// version of this package for its Model to satisfy plugin.Model.
func loadShared(path string) (Unit, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open shared object")
	}
	return &sharedUnit{source: path, p: p}, nil
}
