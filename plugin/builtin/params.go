package builtin

import (
	"math"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// merge overlays each map in turn onto a copy of base.
func merge(base map[string]any, overlays ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overlays {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

func floatParam(hp map[string]any, key string, def float64) (float64, error) {
	v, ok := hp[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, errors.NewValidationError(key, "must be a number", v)
	}
}

func intParam(hp map[string]any, key string, def int) (int, error) {
	v, ok := hp[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, errors.NewValidationError(key, "must be an integer", v)
		}
		return int(n), nil
	default:
		return 0, errors.NewValidationError(key, "must be an integer", v)
	}
}

func boolParam(hp map[string]any, key string, def bool) (bool, error) {
	v, ok := hp[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(key, "must be a bool", v)
	}
	return b, nil
}

func stringParam(hp map[string]any, key, def string) (string, error) {
	v, ok := hp[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(key, "must be a string", v)
	}
	return s, nil
}

// reader collects the first conversion error across several lookups.
type reader struct {
	hp  map[string]any
	err error
}

func (r *reader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) floatOr(key string, def float64) float64 {
	v, err := floatParam(r.hp, key, def)
	r.keep(err)
	return v
}

func (r *reader) intOr(key string, def int) int {
	v, err := intParam(r.hp, key, def)
	r.keep(err)
	return v
}

func (r *reader) boolOr(key string, def bool) bool {
	v, err := boolParam(r.hp, key, def)
	r.keep(err)
	return v
}

func (r *reader) stringOr(key, def string) string {
	v, err := stringParam(r.hp, key, def)
	r.keep(err)
	return v
}
