package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "automl: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "automl: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			if formatted := fmt.Sprintf("%+v", err); !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 3, 2, 1)
	want := "automl: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Ridge", "Predict")
	want := "automl: Ridge: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestTaxonomy(t *testing.T) {
	cause := fmt.Errorf("yaml: line 3: mapping values are not allowed")

	tests := []struct {
		name     string
		err      error
		contains string
		check    func(error) bool
	}{
		{
			name:     "discovery",
			err:      NewDiscoveryError("plugins/bad.yaml", "load failed", cause),
			contains: "plugins/bad.yaml",
			check: func(err error) bool {
				var target *DiscoveryError
				return As(err, &target) && Is(err, cause)
			},
		},
		{
			name:     "training",
			err:      NewTrainingError("broken", cause),
			contains: "training broken",
			check: func(err error) bool {
				var target *TrainingError
				return As(err, &target) && target.Plugin == "broken"
			},
		},
		{
			name:     "unsupported task type",
			err:      NewUnsupportedTaskTypeError("clustering", []string{"regression", "classification"}),
			contains: `"clustering"`,
			check: func(err error) bool {
				var target *UnsupportedTaskTypeError
				return As(err, &target) && target.TaskType == "clustering"
			},
		},
		{
			name:     "empty task type",
			err:      NewUnsupportedTaskTypeError("", nil),
			contains: "problem_type is empty",
			check:    func(err error) bool { return true },
		},
		{
			name:     "selection",
			err:      NewSelectionError(3, "no plugin produced validation metrics"),
			contains: "3 candidates",
			check: func(err error) bool {
				var target *SelectionError
				return As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("%q does not contain %q", tt.err.Error(), tt.contains)
			}
			if !tt.check(tt.err) {
				t.Errorf("type check failed for %T", tt.err)
			}
		})
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var discErr *DiscoveryError
	if !As(NewDiscoveryError("x.so", "missing symbol Name", nil), &discErr) {
		t.Fatal("expected DiscoveryError")
	}
	logger.Warn().EmbedObject(discErr).Msg("skipped")

	out := buf.String()
	for _, want := range []string{`"unit":"x.so"`, `"type":"DiscoveryError"`, `"reason":"missing symbol Name"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %s missing %s", out, want)
		}
	}
}

func TestWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("lasso", 1000, ""))
	if len(got) != 1 {
		t.Fatalf("expected one warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "lasso failed to converge after 1000 iterations") {
		t.Errorf("unexpected warning %v", got[0])
	}

	var structured []error
	SetZerologWarnFunc(func(w error) { structured = append(structured, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewDataConversionWarning("string", "float64", "majority numeric column"))
	if len(structured) != 1 || len(got) != 1 {
		t.Errorf("structured sink should take precedence: structured=%d fallback=%d", len(structured), len(got))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)
	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Predict: expected 10, got 5") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("metrics", []float64{0.1, 2}, 0); err != nil {
		t.Errorf("finite values flagged: %v", err)
	}
	err := CheckScalar("val.mse", math.NaN(), 0)
	var target *NumericalInstabilityError
	if !As(err, &target) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
}

func TestStabilizeExp(t *testing.T) {
	if got := StabilizeExp(1e6); math.IsInf(got, 1) || got != math.Exp(700) {
		t.Errorf("StabilizeExp(1e6) = %v, want exp(700)", got)
	}
	if got := StabilizeExp(-1e6); got != 0 {
		t.Errorf("StabilizeExp(-1e6) = %v, want 0", got)
	}
	if got := StabilizeExp(1); got != math.E {
		t.Errorf("StabilizeExp(1) = %v, want e", got)
	}
}
