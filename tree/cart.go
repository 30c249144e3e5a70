package tree

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is one node of a fitted tree. Leaves have Feature == -1. Children are
// indices into Tree.Nodes.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Samples   int
	Impurity  float64
	// Value holds class proportions for classifiers and output means for
	// regressors.
	Value []float64
}

// Tree is a fitted CART tree. Nodes[0] is the root.
type Tree struct {
	Nodes       []Node
	NFeatures   int
	Importances []float64
}

// leaf walks x down to its leaf and returns the leaf value.
func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth is the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Leaves counts leaf nodes.
func (t *Tree) Leaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.Feature < 0 {
			c++
		}
	}
	return c
}

type builder struct {
	cols   [][]float64 // column-major copy of X
	crit   criterion
	params Params
	mtry   int
	rng    *rand.Rand

	nodes       []Node
	importances []float64
}

// grow fits a tree on the samples in idx, which may contain repeats.
func grow(X mat.Matrix, idx []int, crit criterion, p Params, rng *rand.Rand) *Tree {
	n, nf := X.Dims()
	cols := make([][]float64, nf)
	for j := range cols {
		cols[j] = mat.Col(make([]float64, n), j, X)
	}
	b := &builder{
		cols:        cols,
		crit:        crit,
		params:      p,
		mtry:        p.featuresPerSplit(nf),
		rng:         rng,
		importances: make([]float64, nf),
	}
	b.split(idx, 0)

	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	return &Tree{Nodes: b.nodes, NFeatures: nf, Importances: b.importances}
}

func (b *builder) split(idx []int, depth int) int {
	impurity := b.crit.node(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Samples:  len(idx),
		Impurity: impurity,
		Value:    b.crit.value(idx),
	})

	p := b.params
	if (p.MaxDepth > 0 && depth >= p.MaxDepth) ||
		len(idx) < p.MinSamplesSplit ||
		len(idx) < 2*p.MinSamplesLeaf ||
		impurity <= 1e-12 {
		return id
	}

	feature, threshold, childImpurity, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.cols[feature][i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importances[feature] += float64(len(idx))*impurity - childImpurity

	l := b.split(left, depth+1)
	r := b.split(right, depth+1)
	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit returns the split minimizing the sample-weighted child impurity.
// Zero-gain splits are accepted so impure nodes with distinct values always
// split. childImpurity is nl*impL + nr*impR.
func (b *builder) bestSplit(idx []int) (feature int, threshold, childImpurity float64, ok bool) {
	features := b.candidateFeatures()
	sorted := make([]int, len(idx))
	minLeaf := b.params.MinSamplesLeaf

	for _, f := range features {
		col := b.cols[f]
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

		b.crit.init(sorted)
		for pos := 0; pos < len(sorted)-1; pos++ {
			b.crit.push(sorted[pos])
			lo, hi := col[sorted[pos]], col[sorted[pos+1]]
			if lo == hi {
				continue
			}
			nl := pos + 1
			nr := len(sorted) - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			il, ir := b.crit.children()
			weighted := float64(nl)*il + float64(nr)*ir
			if !ok || weighted < childImpurity {
				ok = true
				feature = f
				threshold = lo + (hi-lo)/2
				childImpurity = weighted
			}
		}
	}
	return feature, threshold, childImpurity, ok
}

func (b *builder) candidateFeatures() []int {
	nf := len(b.cols)
	if b.mtry >= nf || b.rng == nil {
		all := make([]int, nf)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(nf)[:b.mtry]
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}
