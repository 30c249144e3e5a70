package dataset

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/preprocessing"
)

// ProcessOptions tune Process.
type ProcessOptions struct {
	// Target is the label column. Empty means clustering.
	Target string
	// ProblemType overrides task type inference when set.
	ProblemType string

	TestSize    float64
	RandomState int64

	// A numeric target with at most ClassificationThreshold distinct
	// values, or a distinct/total ratio at most RatioThreshold, is
	// treated as classification.
	ClassificationThreshold int
	RatioThreshold          float64

	// CorrThreshold drops the later feature of any pair whose absolute
	// correlation exceeds it. Zero disables the check.
	CorrThreshold float64
	// PCAVariance keeps the fewest principal components explaining at
	// least this share of variance. Zero disables PCA.
	PCAVariance float64
	// Text columns with more distinct values than CategoricalMaxUnique are
	// dropped instead of label encoded.
	CategoricalMaxUnique int
	// Scale standardizes numeric features.
	Scale bool
}

// DefaultProcessOptions returns the standard feature processing settings.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		TestSize:                0.2,
		RandomState:             42,
		ClassificationThreshold: 20,
		RatioThreshold:          0.05,
		CorrThreshold:           0.9,
		CategoricalMaxUnique:    50,
		Scale:                   true,
	}
}

// InferTaskType classifies a target column as classification or regression.
func InferTaskType(target *Column, classificationThreshold int, ratioThreshold float64) plugin.TaskType {
	if target.Kind != Numeric {
		return plugin.Classification
	}
	n := 0
	for i := 0; i < target.Len(); i++ {
		if !target.Missing(i) {
			n++
		}
	}
	unique := target.Unique()
	if n == 0 || unique <= classificationThreshold || float64(unique)/float64(n) <= ratioThreshold {
		return plugin.Classification
	}
	return plugin.Regression
}

// Process encodes, scales, reduces and splits a cleaned frame.
func Process(f *Frame, opts ProcessOptions) (*Dataset, error) {
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", opts.TestSize)
	}
	if opts.PCAVariance < 0 || opts.PCAVariance > 1 {
		return nil, errors.NewValidationError("pca_variance", "must be in [0, 1]", opts.PCAVariance)
	}

	task, target, err := resolveTarget(f, opts)
	if err != nil {
		return nil, err
	}

	features := f
	if target != nil {
		features = f.Drop(target.Name)
	}
	X, meta, err := encodeFeatures(features, opts)
	if err != nil {
		return nil, err
	}
	meta.ProblemType = string(task)
	if target != nil {
		meta.Target = target.Name
	}

	if opts.CorrThreshold > 0 {
		X, meta = dropCorrelated(X, meta, opts.CorrThreshold)
	}
	if opts.PCAVariance > 0 && opts.PCAVariance < 1 {
		if X, err = reduce(X, &meta, opts.PCAVariance); err != nil {
			return nil, err
		}
	}

	d := &Dataset{}
	if target == nil {
		d.XTrain = X
		meta.TrainSamples, meta.NFeatures = X.Dims()
		d.Metadata = meta
		return d, nil
	}

	y, classes, err := encodeTarget(target, task)
	if err != nil {
		return nil, err
	}
	if classes != nil {
		if meta.Encoders == nil {
			meta.Encoders = map[string][]string{}
		}
		meta.Encoders[target.Name] = classes
	}

	nRows, _ := X.Dims()
	train, val, err := Split(nRows, opts.TestSize, opts.RandomState)
	if err != nil {
		return nil, err
	}
	d.XTrain, d.XVal = rows(X, train), rows(X, val)
	d.YTrain, d.YVal = rows(y, train), rows(y, val)
	meta.TrainSamples, meta.ValSamples = len(train), len(val)
	_, meta.NFeatures = X.Dims()
	d.Metadata = meta

	log.GetLoggerWithName("dataset").Info("features processed",
		log.PhaseKey, log.PhasePreprocessing,
		log.TaskTypeKey, meta.ProblemType,
		log.FeaturesKey, meta.NFeatures,
		log.SamplesKey, meta.TrainSamples,
		"val_samples", meta.ValSamples,
	)
	return d, nil
}

func resolveTarget(f *Frame, opts ProcessOptions) (plugin.TaskType, *Column, error) {
	hint := plugin.TaskType(opts.ProblemType)
	if hint != "" && !hint.Valid() {
		return "", nil, errors.NewValidationError("problem_type", "unknown task type", opts.ProblemType)
	}
	if hint == plugin.Clustering {
		return plugin.Clustering, nil, nil
	}
	if opts.Target == "" {
		if hint != "" {
			return "", nil, errors.NewValueError("dataset.Process", "a target column is required for "+string(hint))
		}
		return plugin.Clustering, nil, nil
	}

	target, ok := f.Column(opts.Target)
	if !ok {
		return "", nil, errors.NewValueError("dataset.Process", "target column "+strconv.Quote(opts.Target)+" not found")
	}
	if len(f.Columns) < 2 {
		return "", nil, errors.NewValueError("dataset.Process", "no feature columns besides the target")
	}
	task := hint
	if task == "" {
		task = InferTaskType(target, opts.ClassificationThreshold, opts.RatioThreshold)
	}
	if task == plugin.Regression && target.Kind != Numeric {
		return "", nil, errors.NewValueError("dataset.Process", "regression target "+strconv.Quote(target.Name)+" is not numeric")
	}
	return task, target, nil
}

func encodeFeatures(f *Frame, opts ProcessOptions) (*mat.Dense, Metadata, error) {
	meta := Metadata{Scaled: opts.Scale}
	var cols [][]float64
	var numericIdx []int

	for _, c := range f.Columns {
		switch {
		case c.Kind == Numeric:
			numericIdx = append(numericIdx, len(cols))
			cols = append(cols, append([]float64(nil), c.Numbers...))
			meta.NumericCols = append(meta.NumericCols, c.Name)
		case c.Unique() <= opts.CategoricalMaxUnique:
			codes, classes := labelEncode(c.Values)
			cols = append(cols, codes)
			meta.CategoricalCols = append(meta.CategoricalCols, c.Name)
			if meta.Encoders == nil {
				meta.Encoders = map[string][]string{}
			}
			meta.Encoders[c.Name] = classes
		default:
			meta.DroppedCols = append(meta.DroppedCols, c.Name)
			continue
		}
		meta.FeatureNames = append(meta.FeatureNames, c.Name)
	}
	if len(cols) == 0 {
		return nil, meta, errors.Wrap(errors.ErrEmptyData, "no usable feature columns")
	}

	n := len(cols[0])
	X := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		X.SetCol(j, col)
	}

	if opts.Scale && len(numericIdx) > 0 {
		sub := mat.NewDense(n, len(numericIdx), nil)
		for k, j := range numericIdx {
			sub.SetCol(k, cols[j])
		}
		scaled, err := preprocessing.NewStandardScaler(true, true).FitTransform(sub)
		if err != nil {
			return nil, meta, err
		}
		col := make([]float64, n)
		for k, j := range numericIdx {
			X.SetCol(j, mat.Col(col, k, scaled))
		}
	}
	return X, meta, nil
}

// labelEncode maps each value to its index among the sorted distinct values.
func labelEncode(values []string) ([]float64, []string) {
	set := make(map[string]struct{})
	for _, v := range values {
		set[v] = struct{}{}
	}
	classes := make([]string, 0, len(set))
	for v := range set {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, v := range classes {
		index[v] = i
	}
	codes := make([]float64, len(values))
	for i, v := range values {
		codes[i] = float64(index[v])
	}
	return codes, classes
}

func encodeTarget(c *Column, task plugin.TaskType) (*mat.Dense, []string, error) {
	n := c.Len()
	if task == plugin.Regression {
		return mat.NewDense(n, 1, append([]float64(nil), c.Numbers...)), nil, nil
	}
	if c.Kind == Text {
		codes, classes := labelEncode(c.Values)
		return mat.NewDense(n, 1, codes), classes, nil
	}

	// numeric labels keep numeric order
	distinct := make(map[float64]struct{})
	for _, v := range c.Numbers {
		distinct[v] = struct{}{}
	}
	values := make([]float64, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Float64s(values)
	index := make(map[float64]int, len(values))
	classes := make([]string, len(values))
	for i, v := range values {
		index[v] = i
		classes[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	y := mat.NewDense(n, 1, nil)
	for i, v := range c.Numbers {
		y.Set(i, 0, float64(index[v]))
	}
	return y, classes, nil
}

// dropCorrelated removes every feature whose absolute correlation with an
// earlier feature exceeds threshold. Constant features are never dropped.
func dropCorrelated(X *mat.Dense, meta Metadata, threshold float64) (*mat.Dense, Metadata) {
	n, p := X.Dims()
	if p < 2 {
		return X, meta
	}
	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	var keep []int
	for j := 0; j < p; j++ {
		drop := false
		for i := 0; i < j && !drop; i++ {
			r := stat.Correlation(cols[i], cols[j], nil)
			drop = !math.IsNaN(r) && math.Abs(r) > threshold
		}
		if drop {
			meta.DroppedCols = append(meta.DroppedCols, meta.FeatureNames[j])
			continue
		}
		keep = append(keep, j)
	}
	if len(keep) == p {
		return X, meta
	}

	out := mat.NewDense(n, len(keep), nil)
	names := make([]string, len(keep))
	for k, j := range keep {
		out.SetCol(k, cols[j])
		names[k] = meta.FeatureNames[j]
	}
	meta.FeatureNames = names
	meta.NumericCols = kept(meta.NumericCols, names)
	meta.CategoricalCols = kept(meta.CategoricalCols, names)
	return out, meta
}

func kept(cols, names []string) []string {
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}
	var out []string
	for _, c := range cols {
		if in[c] {
			out = append(out, c)
		}
	}
	return out
}

// reduce projects X onto the fewest principal components whose cumulative
// explained variance reaches share.
func reduce(X *mat.Dense, meta *Metadata, share float64) (*mat.Dense, error) {
	n, p := X.Dims()
	if n < 2 || p < 2 {
		return X, nil
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return nil, errors.NewModelError("dataset.reduce", "principal component analysis failed", nil)
	}
	vars := pc.VarsTo(nil)
	total := 0.0
	for _, v := range vars {
		total += v
	}
	if total <= 0 {
		return X, nil
	}
	k, acc := 0, 0.0
	for k < len(vars) {
		acc += vars[k]
		k++
		if acc/total >= share {
			break
		}
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	centered := mat.DenseCopyOf(X)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, X)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}
	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, p, 0, k))

	meta.PCAComponents = k
	meta.FeatureNames = make([]string, k)
	for i := range meta.FeatureNames {
		meta.FeatureNames[i] = "pc" + strconv.Itoa(i+1)
	}
	return &proj, nil
}
