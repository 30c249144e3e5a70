package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Classification metric names.
const (
	AccuracyKey  = "accuracy"
	PrecisionKey = "precision"
	RecallKey    = "recall"
	F1Key        = "f1"
)

// Labels converts a column vector of class codes to ints, rounding to the
// nearest integer.
func Labels(y mat.Matrix) []int {
	r, _ := y.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		out[i] = int(math.Round(y.At(i, 0)))
	}
	return out
}

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewValueError("Accuracy", "empty labels")
	}
	if len(yPred) != len(yTrue) {
		return 0, errors.NewDimensionError("Accuracy", len(yTrue), len(yPred), 0)
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ClassScores holds per-class precision, recall, F1 and support.
type ClassScores struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// PerClass computes precision, recall and F1 for every label present in
// yTrue or yPred, sorted by label. Ill-defined ratios are 0 and raise an
// UndefinedMetricWarning.
func PerClass(yTrue, yPred []int) ([]ClassScores, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewValueError("PerClass", "empty labels")
	}
	if len(yPred) != len(yTrue) {
		return nil, errors.NewDimensionError("PerClass", len(yTrue), len(yPred), 0)
	}

	tp := map[int]int{}
	fp := map[int]int{}
	fn := map[int]int{}
	support := map[int]int{}
	seen := map[int]bool{}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		seen[t], seen[p] = true, true
		support[t]++
		if t == p {
			tp[t]++
		} else {
			fp[p]++
			fn[t]++
		}
	}

	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	out := make([]ClassScores, 0, len(labels))
	for _, l := range labels {
		cs := ClassScores{Label: l, Support: support[l]}
		if d := tp[l] + fp[l]; d > 0 {
			cs.Precision = float64(tp[l]) / float64(d)
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning(PrecisionKey, "no predicted samples for a label", 0))
		}
		if d := tp[l] + fn[l]; d > 0 {
			cs.Recall = float64(tp[l]) / float64(d)
		}
		if cs.Precision+cs.Recall > 0 {
			cs.F1 = 2 * cs.Precision * cs.Recall / (cs.Precision + cs.Recall)
		}
		out = append(out, cs)
	}
	return out, nil
}

// ClassificationReport computes accuracy and support-weighted precision,
// recall and F1 for column vectors of class codes.
func ClassificationReport(yTrue, yPred mat.Matrix) (map[string]float64, error) {
	rTrue, _ := yTrue.Dims()
	rPred, _ := yPred.Dims()
	if rTrue == 0 {
		return nil, errors.NewValueError("ClassificationReport", "empty matrix")
	}
	if rTrue != rPred {
		return nil, errors.NewDimensionError("ClassificationReport", rTrue, rPred, 0)
	}

	t, p := Labels(yTrue), Labels(yPred)
	acc, err := Accuracy(t, p)
	if err != nil {
		return nil, err
	}
	classes, err := PerClass(t, p)
	if err != nil {
		return nil, err
	}

	var prec, rec, f1 float64
	for _, c := range classes {
		w := float64(c.Support) / float64(len(t))
		prec += w * c.Precision
		rec += w * c.Recall
		f1 += w * c.F1
	}
	return map[string]float64{
		AccuracyKey:  acc,
		PrecisionKey: prec,
		RecallKey:    rec,
		F1Key:        f1,
	}, nil
}
