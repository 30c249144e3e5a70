package plugin

import (
	"fmt"
	"strings"
)

// Exported symbol names every unit must provide.
const (
	SymbolName      = "Name"
	SymbolTaskTypes = "SupportedTaskTypes"
	SymbolModel     = "Model"
)

// Unit is a loaded but unvalidated plugin unit.
type Unit interface {
	// Source is the file the unit came from.
	Source() string
	// Lookup returns an exported symbol.
	Lookup(symbol string) (any, bool)
}

// NewUnit builds a Unit from a symbol table. Loaders use it, and so can tests.
func NewUnit(source string, symbols map[string]any) Unit {
	return &symbolUnit{source: source, symbols: symbols}
}

type symbolUnit struct {
	source  string
	symbols map[string]any
	// notes explain why a symbol is absent
	notes map[string]string
}

func (u *symbolUnit) Source() string { return u.source }

func (u *symbolUnit) Lookup(symbol string) (any, bool) {
	v, ok := u.symbols[symbol]
	return v, ok
}

func (u *symbolUnit) note(symbol string) string {
	if u.notes == nil {
		return ""
	}
	return u.notes[symbol]
}

// Validate checks the structural contract: a non-empty Name, a non-empty
// list of known SupportedTaskTypes and a Model with the train capability.
// On failure reason starts with the offending symbol name.
func Validate(unit Unit) (ok bool, reason string) {
	if _, reason := resolve(unit); reason != "" {
		return false, reason
	}
	return true, ""
}

// resolve validates unit and builds its descriptor.
func resolve(unit Unit) (Descriptor, string) {
	name, reason := lookupName(unit)
	if reason != "" {
		return Descriptor{}, reason
	}
	types, reason := lookupTaskTypes(unit)
	if reason != "" {
		return Descriptor{}, reason
	}
	m, reason := lookupModel(unit)
	if reason != "" {
		return Descriptor{}, reason
	}
	return Descriptor{Name: name, TaskTypes: types, Model: m, Source: unit.Source()}, ""
}

func missing(unit Unit, symbol string) string {
	if su, ok := unit.(*symbolUnit); ok {
		if n := su.note(symbol); n != "" {
			return fmt.Sprintf("%s: %s", symbol, n)
		}
	}
	return symbol + ": missing"
}

func lookupName(unit Unit) (string, string) {
	v, ok := unit.Lookup(SymbolName)
	if !ok {
		return "", missing(unit, SymbolName)
	}
	var name string
	switch s := v.(type) {
	case string:
		name = s
	case *string:
		if s != nil {
			name = *s
		}
	default:
		return "", fmt.Sprintf("%s: expected string, got %T", SymbolName, v)
	}
	if strings.TrimSpace(name) == "" {
		return "", SymbolName + ": empty"
	}
	return name, ""
}

func lookupTaskTypes(unit Unit) ([]TaskType, string) {
	v, ok := unit.Lookup(SymbolTaskTypes)
	if !ok {
		return nil, missing(unit, SymbolTaskTypes)
	}
	var raw []string
	switch s := v.(type) {
	case []string:
		raw = s
	case *[]string:
		if s != nil {
			raw = *s
		}
	case []TaskType:
		for _, t := range s {
			raw = append(raw, string(t))
		}
	case *[]TaskType:
		if s != nil {
			for _, t := range *s {
				raw = append(raw, string(t))
			}
		}
	default:
		return nil, fmt.Sprintf("%s: expected []string, got %T", SymbolTaskTypes, v)
	}
	if len(raw) == 0 {
		return nil, SymbolTaskTypes + ": empty"
	}
	types := make([]TaskType, len(raw))
	for i, r := range raw {
		t := TaskType(strings.ToLower(strings.TrimSpace(r)))
		if !t.Valid() {
			return nil, fmt.Sprintf("%s: unknown task type %q", SymbolTaskTypes, r)
		}
		types[i] = t
	}
	return types, ""
}

func lookupModel(unit Unit) (Model, string) {
	v, ok := unit.Lookup(SymbolModel)
	if !ok {
		return nil, missing(unit, SymbolModel)
	}
	var m Model
	switch s := v.(type) {
	case Model:
		m = s
	case func() Model:
		m = s()
	case *Model:
		if s != nil {
			m = *s
		}
	default:
		return nil, fmt.Sprintf("%s: %T has no Train(context.Context, plugin.TrainInput) method", SymbolModel, v)
	}
	if m == nil {
		return nil, SymbolModel + ": nil"
	}
	return m, ""
}
