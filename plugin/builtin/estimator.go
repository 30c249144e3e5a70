package builtin

import (
	"context"
	"encoding/gob"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/linear"
	"github.com/YuminosukeSato/scigo-automl/metrics"
	"github.com/YuminosukeSato/scigo-automl/neighbors"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/preprocessing"
	"github.com/YuminosukeSato/scigo-automl/tree"
)

func init() {
	gob.Register(&linear.LinearRegression{})
	gob.Register(&linear.Ridge{})
	gob.Register(&linear.ElasticNet{})
	gob.Register(&linear.LogisticRegression{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&tree.DecisionTreeClassifier{})
	gob.Register(&tree.RandomForestRegressor{})
	gob.Register(&tree.RandomForestClassifier{})
	gob.Register(&neighbors.KNeighborsRegressor{})
	gob.Register(&neighbors.KNeighborsClassifier{})
}

// Artifact is what a built-in plugin persists at its save path.
type Artifact struct {
	Factory  string
	TaskType plugin.TaskType
	// Scaler is set when the plugin standardized its own inputs.
	Scaler *preprocessing.StandardScaler
	Model  model.Estimator
}

// Predict applies the stored scaler, if any, then the model.
func (a *Artifact) Predict(X mat.Matrix) (mat.Matrix, error) {
	if a.Scaler != nil {
		scaled, err := a.Scaler.Transform(X)
		if err != nil {
			return nil, err
		}
		X = scaled
	}
	return a.Model.Predict(X)
}

// LoadArtifact reads an artifact written by a built-in plugin.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, err
	}
	return &a, nil
}

// estimatorPlugin trains one built-in estimator per call.
type estimatorPlugin struct {
	entry       Entry
	hyperparams map[string]any
}

// Train fits a fresh estimator, reports metrics on train and, when given,
// val, and saves an Artifact to in.SavePath. A failed save is recorded in
// metadata under artifact_error and is not fatal.
func (p *estimatorPlugin) Train(ctx context.Context, in plugin.TrainInput) (*plugin.Output, error) {
	op := p.entry.Factory + ".Train"
	if in.XTrain == nil || in.YTrain == nil {
		return nil, errors.NewValueError(op, "XTrain and YTrain are required")
	}

	hp := merge(p.hyperparams, in.Config)
	est, err := p.entry.build(hp)
	if err != nil {
		return nil, err
	}

	xTrain, xVal := mat.Matrix(in.XTrain), mat.Matrix(in.XVal)
	var scaler *preprocessing.StandardScaler
	if in.Scale {
		scaler = preprocessing.NewStandardScaler(true, true)
		if xTrain, err = scaler.FitTransform(xTrain); err != nil {
			return nil, err
		}
		if in.HasVal() {
			if xVal, err = scaler.Transform(xVal); err != nil {
				return nil, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := est.Fit(xTrain, in.YTrain); err != nil {
		return nil, errors.Wrapf(err, "fit %s", p.entry.Factory)
	}
	fitSeconds := time.Since(start).Seconds()

	out := map[string]map[string]float64{}
	if out[plugin.SplitTrain], err = p.evaluate(est, xTrain, in.YTrain); err != nil {
		return nil, errors.Wrap(err, "evaluate train split")
	}
	if in.HasVal() {
		if out[plugin.SplitVal], err = p.evaluate(est, xVal, in.YVal); err != nil {
			return nil, errors.Wrap(err, "evaluate val split")
		}
	}

	nSamples, nFeatures := in.XTrain.Dims()
	params := hp
	if g, ok := est.(model.ParameterGetter); ok {
		params = g.GetParams()
	}
	meta := map[string]any{
		"estimator":     p.entry.Factory,
		"hyperparams":   params,
		"train_samples": nSamples,
		"n_features":    nFeatures,
		"fit_seconds":   fitSeconds,
		"scaled":        in.Scale,
	}

	if in.SavePath != "" {
		art := &Artifact{Factory: p.entry.Factory, TaskType: p.entry.TaskType, Scaler: scaler, Model: est}
		if err := model.SaveModel(art, in.SavePath); err != nil {
			meta["artifact_error"] = err.Error()
		} else {
			meta["artifact"] = in.SavePath
		}
	}

	return &plugin.Output{Handle: est, Metrics: out, Metadata: meta}, nil
}

func (p *estimatorPlugin) evaluate(est model.Estimator, X, y mat.Matrix) (map[string]float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	if p.entry.TaskType == plugin.Classification {
		return metrics.ClassificationReport(y, pred)
	}
	return metrics.RegressionReport(y, pred)
}
