package dataset

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// Split shuffles [0, n) with seed and returns train and test row indices.
// The test share is rounded up, and both parts are non-empty.
func Split(n int, testSize float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, errors.NewValueError("dataset.Split", "need at least 2 rows to split")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		return nil, nil, errors.NewValueError("dataset.Split", "test_size leaves no training rows")
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func rows(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		out.SetRow(k, m.RawRowView(i))
	}
	return out
}
