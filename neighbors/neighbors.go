// Package neighbors implements k-nearest-neighbour classification and
// regression with Minkowski distances.
package neighbors

import (
	"sort"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/core/parallel"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vote weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

const parallelThreshold = 256

// Params are the neighbour search settings.
type Params struct {
	NNeighbors int
	Weights    string
	// P is the Minkowski power; 2 is Euclidean, 1 Manhattan.
	P float64
}

// Option configures a neighbours estimator.
type Option func(*Params)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option { return func(p *Params) { p.NNeighbors = k } }

// WithWeights sets the vote weighting scheme.
func WithWeights(w string) Option { return func(p *Params) { p.Weights = w } }

// WithP sets the Minkowski power.
func WithP(power float64) Option { return func(p *Params) { p.P = power } }

func newParams(opts []Option) Params {
	p := Params{NNeighbors: 5, Weights: WeightsUniform, P: 2}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// GetParams implements model.ParameterGetter.
func (p Params) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_neighbors": p.NNeighbors, "weights": p.Weights, "p": p.P}
}

// Index is the memorized training set shared by both estimators. It is
// exported so the embedded fields survive gob encoding.
type Index struct {
	Params
	State *model.StateManager

	Points [][]float64
	// Targets holds one row per training point.
	Targets [][]float64
}

func (ix *Index) fit(op string, X, y mat.Matrix) error {
	n, p := X.Dims()
	ry, k := y.Dims()
	if n == 0 || p == 0 || k == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError(op, n, ry, 0)
	}
	if ix.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", ix.NNeighbors)
	}
	if ix.NNeighbors > n {
		return errors.NewValueError(op, "n_neighbors exceeds the number of training samples")
	}
	if ix.Weights != WeightsUniform && ix.Weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be uniform or distance", ix.Weights)
	}
	if ix.P < 1 {
		return errors.NewValidationError("p", "must be at least 1", ix.P)
	}

	ix.Points = make([][]float64, n)
	ix.Targets = make([][]float64, n)
	for i := 0; i < n; i++ {
		ix.Points[i] = mat.Row(nil, i, X)
		ix.Targets[i] = mat.Row(nil, i, y)
	}
	ix.State.SetFitted(n, p, k)
	return nil
}

type neighbour struct {
	i      int
	dist   float64
	weight float64
}

// query returns the k nearest training points to x with their vote weights.
// Under distance weighting, exact matches take all the weight.
func (ix *Index) query(x []float64) []neighbour {
	all := make([]neighbour, len(ix.Points))
	for i, pt := range ix.Points {
		all[i] = neighbour{i: i, dist: floats.Distance(x, pt, ix.P)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	nn := all[:ix.NNeighbors]

	exact := false
	for _, n := range nn {
		if n.dist == 0 {
			exact = true
			break
		}
	}
	for j := range nn {
		switch {
		case ix.Weights == WeightsUniform:
			nn[j].weight = 1
		case exact:
			if nn[j].dist == 0 {
				nn[j].weight = 1
			}
		default:
			nn[j].weight = 1 / nn[j].dist
		}
	}
	return nn
}

// check runs the fitted and shape checks every prediction starts with.
func (ix *Index) check(name, method string, X mat.Matrix) error {
	if err := ix.State.RequireFitted(name, method); err != nil {
		return err
	}
	n, c := X.Dims()
	if n == 0 {
		return errors.NewModelError(name+"."+method, "empty data", errors.ErrEmptyData)
	}
	return ix.State.CheckFeatures(name+"."+method, c)
}

// each runs fn for every row of X with that row's neighbours.
func (ix *Index) each(X mat.Matrix, fn func(i int, nn []neighbour)) {
	n, c := X.Dims()
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			fn(i, ix.query(row))
		}
	})
}
