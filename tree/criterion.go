package tree

import "math"

// criterion scores a node and its candidate children incrementally. A split
// scan calls init with the node's samples all on the right, then moves them
// left one at a time in sorted order.
type criterion interface {
	init(idx []int)
	push(sample int)
	children() (left, right float64)
	node(idx []int) float64
	value(idx []int) []float64
}

type classCriterion struct {
	y       []int // class index per sample
	k       int
	entropy bool

	left, right []float64
	nl, nr      float64
}

func newClassCriterion(y []int, k int, entropy bool) *classCriterion {
	return &classCriterion{y: y, k: k, entropy: entropy, left: make([]float64, k), right: make([]float64, k)}
}

func (c *classCriterion) init(idx []int) {
	for j := range c.left {
		c.left[j], c.right[j] = 0, 0
	}
	for _, i := range idx {
		c.right[c.y[i]]++
	}
	c.nl, c.nr = 0, float64(len(idx))
}

func (c *classCriterion) push(i int) {
	c.left[c.y[i]]++
	c.right[c.y[i]]--
	c.nl++
	c.nr--
}

func (c *classCriterion) children() (float64, float64) {
	return c.impurity(c.left, c.nl), c.impurity(c.right, c.nr)
}

func (c *classCriterion) node(idx []int) float64 {
	counts := c.counts(idx)
	return c.impurity(counts, float64(len(idx)))
}

// value returns class proportions.
func (c *classCriterion) value(idx []int) []float64 {
	counts := c.counts(idx)
	n := float64(len(idx))
	for j := range counts {
		counts[j] /= n
	}
	return counts
}

func (c *classCriterion) counts(idx []int) []float64 {
	counts := make([]float64, c.k)
	for _, i := range idx {
		counts[c.y[i]]++
	}
	return counts
}

func (c *classCriterion) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if c.entropy {
		var h float64
		for _, v := range counts {
			if v > 0 {
				p := v / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	g := 1.0
	for _, v := range counts {
		p := v / n
		g -= p * p
	}
	return g
}

// mseCriterion is the variance averaged over outputs.
type mseCriterion struct {
	y [][]float64 // per sample, per output

	sumL, sqL, sumR, sqR []float64
	nl, nr               float64
}

func newMSECriterion(y [][]float64, outputs int) *mseCriterion {
	return &mseCriterion{
		y:    y,
		sumL: make([]float64, outputs),
		sqL:  make([]float64, outputs),
		sumR: make([]float64, outputs),
		sqR:  make([]float64, outputs),
	}
}

func (c *mseCriterion) init(idx []int) {
	for k := range c.sumL {
		c.sumL[k], c.sqL[k], c.sumR[k], c.sqR[k] = 0, 0, 0, 0
	}
	for _, i := range idx {
		for k, v := range c.y[i] {
			c.sumR[k] += v
			c.sqR[k] += v * v
		}
	}
	c.nl, c.nr = 0, float64(len(idx))
}

func (c *mseCriterion) push(i int) {
	for k, v := range c.y[i] {
		c.sumL[k] += v
		c.sqL[k] += v * v
		c.sumR[k] -= v
		c.sqR[k] -= v * v
	}
	c.nl++
	c.nr--
}

func (c *mseCriterion) children() (float64, float64) {
	return variance(c.sumL, c.sqL, c.nl), variance(c.sumR, c.sqR, c.nr)
}

func (c *mseCriterion) node(idx []int) float64 {
	sum := make([]float64, len(c.sumL))
	sq := make([]float64, len(c.sumL))
	for _, i := range idx {
		for k, v := range c.y[i] {
			sum[k] += v
			sq[k] += v * v
		}
	}
	return variance(sum, sq, float64(len(idx)))
}

// value returns the per-output mean.
func (c *mseCriterion) value(idx []int) []float64 {
	mean := make([]float64, len(c.sumL))
	for _, i := range idx {
		for k, v := range c.y[i] {
			mean[k] += v
		}
	}
	for k := range mean {
		mean[k] /= float64(len(idx))
	}
	return mean
}

func variance(sum, sq []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var v float64
	for k := range sum {
		m := sum[k] / n
		v += math.Max(sq[k]/n-m*m, 0)
	}
	return v / float64(len(sum))
}
