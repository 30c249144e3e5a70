package dataset

import (
	"archive/zip"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/plugin"
)

func frame(t *testing.T, csv string) *Frame {
	t.Helper()
	f, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return f
}

func TestReadCSV(t *testing.T) {
	f := frame(t, "\ufeffa, b ,c\n1,x,NA\n2,y\n")
	assert.Equal(t, []string{"a", "b", "c"}, f.Names())
	assert.Equal(t, 2, f.NRows())
	c, ok := f.Column("c")
	require.True(t, ok)
	assert.True(t, c.Missing(0))
	assert.True(t, c.Missing(1))
}

func TestReadFileFormats(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("x,y\n1,2\n"), 0o644))
	f, err := ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 1, f.NRows())

	zipPath := filepath.Join(dir, "data.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("not data"))
	w, err = zw.Create("inner/table.CSV")
	require.NoError(t, err)
	_, _ = w.Write([]byte("p,q\n3,4\n5,6\n"))
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	f, err = ReadFile(zipPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q"}, f.Names())
	assert.Equal(t, 2, f.NRows())

	_, err = ReadFile(filepath.Join(dir, "data.xlsx"))
	var verr *errors.ValueError
	assert.True(t, errors.As(err, &verr))
	_, err = ReadFile(filepath.Join(dir, "data.parquet"))
	assert.Error(t, err)
}

func TestCleanDropsAndCoerces(t *testing.T) {
	f := frame(t, strings.Join([]string{
		"Unnamed: 0,num,mixed,empty,label",
		"0,1,10,,a",
		"1,,20,,b",
		"2,5,oops,,",
		"3,4,40,,b",
	}, "\n"))
	out, rep, err := Clean(f, CleanOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"num", "mixed", "label"}, out.Names())
	assert.ElementsMatch(t, []string{"Unnamed: 0", "empty"}, rep.DroppedColumns)
	assert.Equal(t, []string{"mixed"}, rep.Coerced)

	num, _ := out.Column("num")
	assert.Equal(t, Numeric, num.Kind)
	assert.Equal(t, []float64{1, 4, 5, 4}, num.Numbers)

	mixed, _ := out.Column("mixed")
	assert.Equal(t, Numeric, mixed.Kind)
	assert.Equal(t, 20.0, mixed.Numbers[2])

	label, _ := out.Column("label")
	assert.Equal(t, Text, label.Kind)
	assert.Equal(t, "b", label.Values[2])
	assert.Equal(t, 3, rep.Imputed)
}

func TestCleanRemovesDuplicatesAndOutliers(t *testing.T) {
	lines := []string{"x,y"}
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("%d,%d", i, i%2))
	}
	lines = append(lines, "5,1", "1000,0")
	out, rep, err := Clean(frame(t, strings.Join(lines, "\n")), DefaultCleanOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.DuplicatesFound)
	assert.Equal(t, 1, rep.OutliersRemoved)
	assert.Equal(t, 10, out.NRows())
	x, _ := out.Column("x")
	for _, v := range x.Numbers {
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestCleanSkipsLowCardinalityAndKept(t *testing.T) {
	lines := []string{"x,y"}
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("%d,%d", i%2, i))
	}
	lines = append(lines, "0,1000")
	opts := DefaultCleanOptions()
	opts.Keep = []string{"y"}
	out, rep, err := Clean(frame(t, strings.Join(lines, "\n")), opts)
	require.NoError(t, err)
	assert.Zero(t, rep.OutliersRemoved)
	assert.Equal(t, 11, out.NRows())
}

func TestCleanEmpty(t *testing.T) {
	_, _, err := Clean(frame(t, "Unnamed: 0\n1\n"), DefaultCleanOptions())
	assert.ErrorIs(t, err, errors.ErrEmptyData)
}

func TestQuantileAndMedian(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(s, 0.25), 1e-12)
	assert.InDelta(t, 3.25, quantile(s, 0.75), 1e-12)
	assert.InDelta(t, 2.5, median([]float64{4, 1, 3, 2}), 1e-12)
	assert.True(t, math.IsNaN(median(nil)))
	assert.Equal(t, "a", mode([]string{"b", "a", "", "a", "b"}))
}

func numericColumn(values ...float64) *Column {
	return &Column{Name: "t", Kind: Numeric, Numbers: values}
}

func TestInferTaskType(t *testing.T) {
	many := make([]float64, 100)
	for i := range many {
		many[i] = float64(i) * 1.5
	}
	assert.Equal(t, plugin.Regression, InferTaskType(numericColumn(many...), 20, 0.05))
	assert.Equal(t, plugin.Classification, InferTaskType(numericColumn(0, 1, 1, 0, 2), 20, 0.05))
	assert.Equal(t, plugin.Classification, InferTaskType(&Column{Kind: Text, Values: []string{"a"}}, 20, 0.05))

	// 25 distinct values over 1000 rows: above the count threshold, below the ratio
	ratio := make([]float64, 1000)
	for i := range ratio {
		ratio[i] = float64(i % 25)
	}
	assert.Equal(t, plugin.Classification, InferTaskType(numericColumn(ratio...), 20, 0.05))
	assert.Equal(t, plugin.Regression, InferTaskType(numericColumn(ratio...), 20, 0.01))
}

func regressionFrame(n int) *Frame {
	lines := []string{"size,rooms,city,price"}
	for i := 0; i < n; i++ {
		size := 50 + float64(i)*3.7
		rooms := 1 + i%5
		city := []string{"paris", "oslo", "rome"}[i%3]
		lines = append(lines, fmt.Sprintf("%g,%d,%s,%g", size, rooms, city, 2*size+10*float64(rooms)))
	}
	f, _ := ReadCSV(strings.NewReader(strings.Join(lines, "\n")))
	out, _, _ := Clean(f, DefaultCleanOptions())
	return out
}

func TestProcessRegression(t *testing.T) {
	opts := DefaultProcessOptions()
	opts.Target = "price"
	d, err := Process(regressionFrame(50), opts)
	require.NoError(t, err)

	m := d.Metadata
	assert.Equal(t, "regression", m.ProblemType)
	assert.Equal(t, "price", m.Target)
	assert.Equal(t, []string{"size", "rooms", "city"}, m.FeatureNames)
	assert.Equal(t, []string{"size", "rooms"}, m.NumericCols)
	assert.Equal(t, []string{"city"}, m.CategoricalCols)
	assert.Equal(t, []string{"oslo", "paris", "rome"}, m.Encoders["city"])
	assert.Equal(t, 40, m.TrainSamples)
	assert.Equal(t, 10, m.ValSamples)
	assert.Equal(t, 3, m.NFeatures)

	r, c := d.XTrain.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 3, c)
	r, _ = d.YVal.Dims()
	assert.Equal(t, 10, r)

	all := mat.NewDense(50, 3, nil)
	all.Stack(d.XTrain, d.XVal)
	col := mat.Col(nil, 0, all)
	mean := 0.0
	for _, v := range col {
		mean += v
	}
	assert.InDelta(t, 0, mean/50, 1e-9, "numeric features are standardized")
}

func TestProcessClassificationTarget(t *testing.T) {
	lines := []string{"a,b,label"}
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("%d,%d,%s", i, (i*7)%11, []string{"yes", "no"}[i%2]))
	}
	cleaned, _, err := Clean(frame(t, strings.Join(lines, "\n")), DefaultCleanOptions())
	require.NoError(t, err)
	opts := DefaultProcessOptions()
	opts.Target = "label"
	d, err := Process(cleaned, opts)
	require.NoError(t, err)
	assert.Equal(t, "classification", d.Metadata.ProblemType)
	assert.Equal(t, []string{"no", "yes"}, d.Metadata.Encoders["label"])
	for i := 0; i < d.Metadata.TrainSamples; i++ {
		v := d.YTrain.At(i, 0)
		assert.True(t, v == 0 || v == 1)
	}
}

func TestProcessNumericLabelsKeepOrder(t *testing.T) {
	y, classes, err := encodeTarget(numericColumn(10, 2, 2, 10, 3), plugin.Classification)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "10"}, classes)
	assert.Equal(t, []float64{2, 0, 0, 2, 1}, mat.Col(nil, 0, y))
}

func TestProcessTargetErrors(t *testing.T) {
	f := regressionFrame(20)
	tests := []struct {
		name string
		opts func(o *ProcessOptions)
	}{
		{"missing target column", func(o *ProcessOptions) { o.Target = "nope" }},
		{"supervised without target", func(o *ProcessOptions) { o.ProblemType = "regression" }},
		{"text regression target", func(o *ProcessOptions) { o.Target = "city"; o.ProblemType = "regression" }},
		{"unknown problem", func(o *ProcessOptions) { o.Target = "price"; o.ProblemType = "ranking" }},
		{"bad test size", func(o *ProcessOptions) { o.Target = "price"; o.TestSize = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultProcessOptions()
			tt.opts(&opts)
			_, err := Process(f, opts)
			assert.Error(t, err)
		})
	}
}

func TestProcessClustering(t *testing.T) {
	d, err := Process(regressionFrame(20), DefaultProcessOptions())
	require.NoError(t, err)
	assert.Equal(t, "clustering", d.Metadata.ProblemType)
	assert.Nil(t, d.YTrain)
	assert.Nil(t, d.XVal)
	assert.Equal(t, 20, d.Metadata.TrainSamples)
}

func TestProblemHintOverridesInference(t *testing.T) {
	opts := DefaultProcessOptions()
	opts.Target = "rooms"
	opts.ProblemType = "regression"
	d, err := Process(regressionFrame(30), opts)
	require.NoError(t, err)
	assert.Equal(t, "regression", d.Metadata.ProblemType)
}

func TestDropCorrelated(t *testing.T) {
	X := mat.NewDense(5, 3, []float64{
		1, 2, 5,
		2, 4, 1,
		3, 6, 4,
		4, 8, 2,
		5, 10, 3,
	})
	meta := Metadata{FeatureNames: []string{"a", "twice_a", "noise"}, NumericCols: []string{"a", "twice_a", "noise"}}
	out, meta := dropCorrelated(X, meta, 0.9)
	_, c := out.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, []string{"a", "noise"}, meta.FeatureNames)
	assert.Equal(t, []string{"a", "noise"}, meta.NumericCols)
	assert.Equal(t, []string{"twice_a"}, meta.DroppedCols)
}

func TestReduceKeepsVarianceShare(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		v := float64(i)
		X.SetRow(i, []float64{v, v + 0.01*float64(i%3), 0.001 * float64(i%2)})
	}
	meta := Metadata{FeatureNames: []string{"a", "b", "c"}}
	out, err := reduce(X, &meta, 0.95)
	require.NoError(t, err)
	_, c := out.Dims()
	assert.Equal(t, 1, c)
	assert.Equal(t, []string{"pc1"}, meta.FeatureNames)
	assert.Equal(t, 1, meta.PCAComponents)
}

func TestSplit(t *testing.T) {
	train, test, err := Split(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	again, _, _ := Split(10, 0.2, 42)
	assert.Equal(t, train, again)

	_, test, err = Split(3, 0.01, 1)
	require.NoError(t, err)
	assert.Len(t, test, 1)

	_, _, err = Split(1, 0.2, 1)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	opts := DefaultProcessOptions()
	opts.Target = "price"
	d, err := Process(regressionFrame(25), opts)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "processed")
	require.NoError(t, d.Save(dir))
	for _, f := range []string{MetadataFile, XTrainFile, YTrainFile, XValFile, YValFile} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	back, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, d.Metadata, back.Metadata)
	assert.True(t, mat.Equal(d.XTrain, back.XTrain))
	assert.True(t, mat.Equal(d.YTrain, back.YTrain))
	assert.True(t, mat.Equal(d.XVal, back.XVal))
	assert.True(t, mat.Equal(d.YVal, back.YVal))

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}
