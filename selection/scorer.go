// Package selection folds each plugin's validation metrics into one score
// and picks the best plugin.
package selection

import (
	"math"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/training"
)

const (
	// missingError stands in for an absent error metric, so the plugin
	// gets almost nothing from that term.
	missingError = 1e9
	// errorFloor keeps a perfect error metric from dividing by zero. Negative
	// values are clamped to it too.
	errorFloor = 1e-12
)

// RegressionWeights weight the terms of the regression score.
type RegressionWeights struct {
	MSE  float64 `koanf:"mse" json:"mse"`
	RMSE float64 `koanf:"rmse" json:"rmse"`
	MAE  float64 `koanf:"mae" json:"mae"`
	R2   float64 `koanf:"r2" json:"r2"`
}

// ClassificationWeights weight the terms of the classification score.
type ClassificationWeights struct {
	F1        float64 `koanf:"f1" json:"f1"`
	Accuracy  float64 `koanf:"accuracy" json:"accuracy"`
	Precision float64 `koanf:"precision" json:"precision"`
	Recall    float64 `koanf:"recall" json:"recall"`
}

// DefaultRegressionWeights returns {mse:0.1, rmse:0.3, mae:0.2, r2:0.4}.
func DefaultRegressionWeights() RegressionWeights {
	return RegressionWeights{MSE: 0.1, RMSE: 0.3, MAE: 0.2, R2: 0.4}
}

// DefaultClassificationWeights returns {f1:0.5, accuracy:0.3, precision:0.1, recall:0.1}.
func DefaultClassificationWeights() ClassificationWeights {
	return ClassificationWeights{F1: 0.5, Accuracy: 0.3, Precision: 0.1, Recall: 0.1}
}

// Scorer turns a metrics block into a single number where higher is better.
type Scorer struct {
	Regression     RegressionWeights
	Classification ClassificationWeights

	logger log.Logger
}

// NewScorer returns a scorer with the default weights.
func NewScorer() *Scorer {
	return &Scorer{
		Regression:     DefaultRegressionWeights(),
		Classification: DefaultClassificationWeights(),
		logger:         log.GetLoggerWithName("selection"),
	}
}

// WithLogger returns s logging to l.
func (s *Scorer) WithLogger(l log.Logger) *Scorer {
	s.logger = l
	return s
}

// Score scores one split's metrics. A block containing "mse" is scored as
// regression
//
//	w_mse/mse + w_rmse/rmse + w_mae/mae + w_r2*r2
//
// and anything else as classification
//
//	w_f1*f1 + w_acc*accuracy + w_prec*precision + w_rec*recall
//
// with missing classification metrics counted as 0.
func (s *Scorer) Score(metrics map[string]float64) float64 {
	if _, ok := metrics["mse"]; ok {
		w := s.Regression
		return w.MSE/errorTerm(metrics, "mse") +
			w.RMSE/errorTerm(metrics, "rmse") +
			w.MAE/errorTerm(metrics, "mae") +
			w.R2*metrics["r2"]
	}
	w := s.Classification
	return w.F1*metrics["f1"] +
		w.Accuracy*metrics["accuracy"] +
		w.Precision*metrics["precision"] +
		w.Recall*metrics["recall"]
}

func errorTerm(metrics map[string]float64, key string) float64 {
	v, ok := metrics[key]
	if !ok || math.IsNaN(v) {
		return missingError
	}
	return math.Max(v, errorFloor)
}

// SelectBest scores every plugin with a "val" split and returns the best
// one, its weights and all scores. Ties go to the plugin discovered first.
// It fails with a SelectionError when no plugin is scorable.
func (s *Scorer) SelectBest(rr *training.RunResults) (string, *model.Weights, map[string]float64, error) {
	if rr == nil {
		return "", nil, nil, errors.NewSelectionError(0, "no run results")
	}

	scores := make(map[string]float64)
	best, bestScore := -1, math.Inf(-1)
	for i, r := range rr.Results {
		val := r.Val()
		if val == nil {
			continue
		}
		score := s.Score(val)
		scores[r.Name] = score
		s.logger.Debug("plugin scored", log.PluginNameKey, r.Name, log.ScoreKey, score)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", nil, nil, errors.NewSelectionError(len(rr.Results), "no plugin produced validation metrics")
	}

	winner := rr.Results[best]
	s.logger.Info("best model selected",
		log.PhaseKey, log.PhaseSelection,
		log.BestModelKey, winner.Name,
		log.ScoreKey, bestScore,
		log.PluginCountKey, len(scores),
	)
	return winner.Name, winner.Weights.Clone(), scores, nil
}

// Apply runs SelectBest and records the outcome on rr. On error rr is left
// with an empty BestModel.
func (s *Scorer) Apply(rr *training.RunResults) (*model.Weights, error) {
	name, weights, scores, err := s.SelectBest(rr)
	if err != nil {
		if rr != nil {
			rr.BestModel, rr.ModelScores = "", map[string]float64{}
		}
		return nil, err
	}
	rr.BestModel, rr.ModelScores = name, scores
	return weights, nil
}
