package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DiscoveryError reports a plugin unit that failed to load or violated the
// plugin contract. Under strict discovery it aborts the run; otherwise the
// unit is skipped with a warning.
type DiscoveryError struct {
	Unit   string // file path or registration name of the unit
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("automl: discovery: %s: %s: %v", e.Unit, e.Reason, e.Err)
	}
	return fmt.Sprintf("automl: discovery: %s: %s", e.Unit, e.Reason)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DiscoveryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("unit", e.Unit).
		Str("reason", e.Reason).
		Str("type", "DiscoveryError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewDiscoveryError creates a DiscoveryError with a stack trace.
func NewDiscoveryError(unit, reason string, err error) error {
	return errors.WithStack(&DiscoveryError{Unit: unit, Reason: reason, Err: err})
}

// TrainingError reports a plugin whose entrypoint failed, panicked, timed out
// or returned a malformed result. It is always contained at the plugin
// boundary and surfaces only as data in that plugin's result.
type TrainingError struct {
	Plugin string
	Err    error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("automl: training %s: %v", e.Plugin, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *TrainingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("plugin", e.Plugin).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "TrainingError")
}

// NewTrainingError creates a TrainingError with a stack trace.
func NewTrainingError(plugin string, err error) error {
	return errors.WithStack(&TrainingError{Plugin: plugin, Err: err})
}

// UnsupportedTaskTypeError is returned when dataset metadata names a task
// type that has no trainer. It is raised before any plugin runs.
type UnsupportedTaskTypeError struct {
	TaskType  string
	Supported []string
}

func (e *UnsupportedTaskTypeError) Error() string {
	if e.TaskType == "" {
		return fmt.Sprintf("automl: unsupported task type: problem_type is empty (supported: %v)", e.Supported)
	}
	return fmt.Sprintf("automl: unsupported task type %q (supported: %v)", e.TaskType, e.Supported)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *UnsupportedTaskTypeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("task_type", e.TaskType).
		Strs("supported", e.Supported).
		Str("type", "UnsupportedTaskTypeError")
}

// NewUnsupportedTaskTypeError creates an UnsupportedTaskTypeError with a
// stack trace.
func NewUnsupportedTaskTypeError(taskType string, supported []string) error {
	return errors.WithStack(&UnsupportedTaskTypeError{TaskType: taskType, Supported: supported})
}

// SelectionError is returned when no plugin produced a scorable validation
// metrics block.
type SelectionError struct {
	Candidates int // plugins present in the results
	Reason     string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("automl: model selection failed over %d candidates: %s", e.Candidates, e.Reason)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *SelectionError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("candidates", e.Candidates).
		Str("reason", e.Reason).
		Str("type", "SelectionError")
}

// NewSelectionError creates a SelectionError with a stack trace.
func NewSelectionError(candidates int, reason string) error {
	return errors.WithStack(&SelectionError{Candidates: candidates, Reason: reason})
}
