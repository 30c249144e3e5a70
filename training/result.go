package training

import (
	"bytes"
	"encoding/json"

	"github.com/YuminosukeSato/scigo-automl/core/model"
	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
	"github.com/YuminosukeSato/scigo-automl/plugin"
)

// Metrics maps a split ("train", "val") to metric name to value.
type Metrics map[string]map[string]float64

// Validate checks that the train split is present and every value is finite.
func (m Metrics) Validate() error {
	if _, ok := m[plugin.SplitTrain]; !ok {
		return errors.Newf("metrics have no %q split", plugin.SplitTrain)
	}
	for split, values := range m {
		for name, v := range values {
			if err := errors.CheckScalar(split+"/"+name, v, 0); err != nil {
				return errors.Wrapf(err, "metric %s/%s is not finite", split, name)
			}
		}
	}
	return nil
}

// Result is the outcome of training one plugin. A failed plugin has Error
// set, no metrics, an empty Metadata and a nil Handle.
type Result struct {
	Name     string
	Metrics  Metrics
	Metadata map[string]any
	// Handle is the trained model returned by the plugin. It is not
	// serialized.
	Handle  any
	Weights *model.Weights
	Error   string
}

// Failed reports whether the plugin's training was contained as an error.
func (r *Result) Failed() bool { return r.Error != "" }

// Val returns the validation metrics, or nil.
func (r *Result) Val() map[string]float64 {
	if r.Failed() {
		return nil
	}
	return r.Metrics[plugin.SplitVal]
}

func failed(name string, err error) *Result {
	return &Result{Name: name, Metadata: map[string]any{}, Error: err.Error()}
}

// RunResults holds one Result per discovered plugin in discovery order, plus
// the selection outcome once it has been applied.
type RunResults struct {
	TaskType    plugin.TaskType
	Results     []*Result
	BestModel   string
	ModelScores map[string]float64
}

// Get returns the result for the named plugin.
func (rr *RunResults) Get(name string) (*Result, bool) {
	for _, r := range rr.Results {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Names lists plugin names in discovery order.
func (rr *RunResults) Names() []string {
	out := make([]string, len(rr.Results))
	for i, r := range rr.Results {
		out[i] = r.Name
	}
	return out
}

// Failures counts error results.
func (rr *RunResults) Failures() int {
	n := 0
	for _, r := range rr.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

type resultDoc struct {
	Metrics  json.RawMessage `json:"metrics"`
	Metadata map[string]any  `json:"metadata"`
	Weights  *model.Weights  `json:"weights,omitempty"`
}

// MarshalJSON writes the results document:
//
//	{"<plugin>": {"metrics": ..., "metadata": ..., "weights": ...},
//	 "best_model": "...", "model_scores": {...}}
//
// Plugin keys keep discovery order. A failed plugin's metrics are
// {"error": message}.
func (rr *RunResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, r := range rr.Results {
		if r.Name == "best_model" || r.Name == "model_scores" {
			return nil, errors.Newf("plugin name %q collides with a results document key", r.Name)
		}
		doc := resultDoc{Metadata: r.Metadata, Weights: r.Weights}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		var err error
		if r.Failed() {
			doc.Metrics, err = json.Marshal(map[string]string{"error": r.Error})
		} else {
			doc.Metrics, err = json.Marshal(r.Metrics)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "encode metrics of %s", r.Name)
		}
		if err := writeField(&buf, r.Name, doc); err != nil {
			return nil, errors.Wrapf(err, "encode result of %s", r.Name)
		}
		buf.WriteByte(',')
	}
	if err := writeField(&buf, "best_model", rr.BestModel); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	scores := rr.ModelScores
	if scores == nil {
		scores = map[string]float64{}
	}
	if err := writeField(&buf, "model_scores", scores); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// UnmarshalJSON reads a document written by MarshalJSON, keeping plugin
// order. Handles are not restored.
func (rr *RunResults) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "decode results document")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("results document is not an object")
	}

	*rr = RunResults{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "decode results document")
		}
		key := tok.(string)
		switch key {
		case "best_model":
			err = dec.Decode(&rr.BestModel)
		case "model_scores":
			err = dec.Decode(&rr.ModelScores)
		default:
			var r *Result
			r, err = decodeResult(dec, key)
			if err == nil {
				rr.Results = append(rr.Results, r)
			}
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
	}
	_, err = dec.Token()
	return err
}

func decodeResult(dec *json.Decoder, name string) (*Result, error) {
	var doc resultDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	r := &Result{Name: name, Metadata: doc.Metadata, Weights: doc.Weights}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc.Metrics, &probe); err != nil {
		return nil, err
	}
	if raw, ok := probe["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, errors.Wrap(err, "error entry is not a string")
		}
		r.Error = msg
		return r, nil
	}
	if err := json.Unmarshal(doc.Metrics, &r.Metrics); err != nil {
		return nil, err
	}
	return r, nil
}
