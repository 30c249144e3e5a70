// Package report renders run results as charts.
package report

import (
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/training"
)

// ChartFile is the file name WriteScoreChart uses inside a run directory.
const ChartFile = "model_scores.png"

// WriteScoreChart draws one bar per scored plugin, in discovery order, and
// saves it to path. The format follows the extension (png, svg, pdf...).
func WriteScoreChart(rr *training.RunResults, path string) error {
	if rr == nil || len(rr.ModelScores) == 0 {
		return errors.NewValueError("report.WriteScoreChart", "no model scores to plot")
	}

	var (
		names  []string
		values plotter.Values
	)
	for _, name := range rr.Names() {
		s, ok := rr.ModelScores[name]
		if !ok || math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		names = append(names, name)
		values = append(values, s)
	}
	if len(values) == 0 {
		return errors.NewValueError("report.WriteScoreChart", "no finite model scores to plot")
	}

	p := plot.New()
	p.Title.Text = "Model scores (" + string(rr.TaskType) + ")"
	if rr.BestModel != "" {
		p.Title.Text += ", best: " + rr.BestModel
	}
	p.Y.Label.Text = "score"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(names...)

	width := vg.Length(math.Max(4, float64(len(names))*0.9)) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, filepath.Clean(path)); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
