package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
)

// CleanOptions tune Clean.
type CleanOptions struct {
	// OutlierMinUnique is the fewest distinct values a numeric column needs
	// before outlier trimming applies to it.
	OutlierMinUnique int
	// IQRFactor scales the interquartile range for the outlier fences.
	// Zero disables trimming.
	IQRFactor float64
	// Keep names columns that outlier trimming must not touch, such as
	// the target.
	Keep []string
}

// DefaultCleanOptions returns the standard cleaning settings.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{OutlierMinUnique: 5, IQRFactor: 1.5}
}

// CleanReport records what Clean changed.
type CleanReport struct {
	RowsIn          int      `json:"rows_in"`
	RowsOut         int      `json:"rows_out"`
	DroppedColumns  []string `json:"dropped_columns,omitempty"`
	Coerced         []string `json:"coerced_columns,omitempty"`
	Imputed         int      `json:"imputed_cells"`
	DuplicatesFound int      `json:"duplicate_rows"`
	OutliersRemoved int      `json:"outlier_rows"`
}

// Clean returns a cleaned copy of f. In order it drops unnamed columns,
// converts every column to its majority type, drops columns with no
// values, imputes missing cells with the median or mode, removes duplicate
// rows and trims numeric outliers outside the IQR fences.
func Clean(f *Frame, opts CleanOptions) (*Frame, *CleanReport, error) {
	logger := log.GetLoggerWithName("dataset")
	rep := &CleanReport{RowsIn: f.NRows()}

	out := &Frame{}
	for _, c := range f.Columns {
		if c.Name == "" || strings.HasPrefix(c.Name, "Unnamed") {
			rep.DroppedColumns = append(rep.DroppedColumns, c.Name)
			continue
		}
		typed, coerced := coerce(c)
		if coerced > 0 {
			rep.Coerced = append(rep.Coerced, c.Name)
			errors.Warn(errors.NewDataConversionWarning("text", "numeric",
				fmt.Sprintf("column %q: %d non-numeric values set to missing", c.Name, coerced)))
		}
		if typed.Unique() == 0 {
			rep.DroppedColumns = append(rep.DroppedColumns, c.Name)
			continue
		}
		rep.Imputed += impute(typed)
		out.Columns = append(out.Columns, typed)
	}
	if len(out.Columns) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "no usable columns after cleaning")
	}

	out, rep.DuplicatesFound = dedupe(out)
	if opts.IQRFactor > 0 {
		out, rep.OutliersRemoved = trimOutliers(out, opts)
	}
	rep.RowsOut = out.NRows()
	if rep.RowsOut == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "no rows left after cleaning")
	}

	logger.Info("dataset cleaned",
		log.PhaseKey, log.PhasePreprocessing,
		log.RowsKey, rep.RowsOut,
		log.ColumnsKey, len(out.Columns),
		"rows_in", rep.RowsIn,
		"duplicates", rep.DuplicatesFound,
		"outliers", rep.OutliersRemoved,
	)
	return out, rep, nil
}

// coerce converts a text column to numeric when most of its non-missing
// values parse as numbers. It returns the number of values lost.
func coerce(c *Column) (*Column, int) {
	if c.Kind == Numeric {
		return c, 0
	}
	numeric, text := 0, 0
	for _, v := range c.Values {
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			numeric++
		} else {
			text++
		}
	}
	if numeric == 0 || numeric <= text {
		return &Column{Name: c.Name, Kind: Text, Values: append([]string(nil), c.Values...)}, 0
	}

	out := &Column{Name: c.Name, Kind: Numeric, Numbers: make([]float64, len(c.Values))}
	for i, v := range c.Values {
		n, err := strconv.ParseFloat(v, 64)
		if v == "" || err != nil || math.IsInf(n, 0) {
			n = math.NaN()
		}
		out.Numbers[i] = n
	}
	return out, text
}

func impute(c *Column) int {
	filled := 0
	if c.Kind == Numeric {
		var present []float64
		for _, v := range c.Numbers {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		med := median(present)
		for i, v := range c.Numbers {
			if math.IsNaN(v) {
				c.Numbers[i] = med
				filled++
			}
		}
		return filled
	}
	m := mode(c.Values)
	for i, v := range c.Values {
		if v == "" {
			c.Values[i] = m
			filled++
		}
	}
	return filled
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// mode returns the most frequent non-empty value, the smallest on ties.
func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func dedupe(f *Frame) (*Frame, int) {
	seen := make(map[string]struct{}, f.NRows())
	keep := make([]int, 0, f.NRows())
	for i := 0; i < f.NRows(); i++ {
		k := f.rowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	removed := f.NRows() - len(keep)
	if removed == 0 {
		return f, 0
	}
	return f.Take(keep), removed
}

// trimOutliers applies the fences column by column, each on the rows the
// previous columns kept.
func trimOutliers(f *Frame, opts CleanOptions) (*Frame, int) {
	keepCols := make(map[string]bool, len(opts.Keep))
	for _, k := range opts.Keep {
		keepCols[k] = true
	}
	before := f.NRows()
	for j := range f.Columns {
		c := f.Columns[j]
		if c.Kind != Numeric || keepCols[c.Name] || c.Unique() < opts.OutlierMinUnique {
			continue
		}
		sorted := append([]float64(nil), c.Numbers...)
		sort.Float64s(sorted)
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		iqr := q3 - q1
		lo, hi := q1-opts.IQRFactor*iqr, q3+opts.IQRFactor*iqr

		var rows []int
		for i, v := range c.Numbers {
			if v >= lo && v <= hi {
				rows = append(rows, i)
			}
		}
		if len(rows) < f.NRows() {
			f = f.Take(rows)
		}
	}
	return f, before - f.NRows()
}

// quantile interpolates linearly between the order statistics at
// position p*(n-1) of sorted.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
