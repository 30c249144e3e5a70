// Package automl is an AutoML engine for tabular data built on gonum.
//
// A run takes a CSV table, cleans and featurizes it, infers whether the
// target calls for regression or classification, trains every model
// plugin that supports that task type and selects the plugin with the best
// weighted validation score.
//
// # Packages
//
//   - dataset: ingestion, cleaning, feature processing and the processed
//     dataset directory
//   - plugin: the plugin contract, manifests and the registry that
//     discovers and validates plugin units
//   - plugin/builtin: the built-in estimator plugins and their manifests
//   - training: the trainer that runs every plugin for one task type
//   - orchestrator: dispatch of a dataset to the trainer for its task type
//   - selection: the weighted scorer and best-model selection
//   - pipeline: the end-to-end runner that writes results documents
//   - report, store, server, config: charts, run history, HTTP API and
//     settings
//   - linear, tree, neighbors, metrics, preprocessing: estimators and
//     evaluation used by the built-in plugins
//   - core/model, core/parallel, pkg/errors, pkg/log: shared interfaces,
//     worker pool, error types and logging
//
// # Quick Start
//
//	cfg := config.Default()
//	runner, err := pipeline.New(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, err := runner.Run(ctx, pipeline.Request{File: "houses.csv", Target: "price"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("best model:", rep.Results.BestModel)
//
// The automl command wraps the same runner:
//
//	automl plugins init
//	automl run --file houses.csv --target price
//	automl serve --addr :8080
//
// # Plugins
//
// A plugin unit is a YAML manifest naming a registered factory, or a Go
// shared object exporting a Plugin symbol. Units live in one directory and
// are rediscovered on every run, so adding a manifest needs no restart.
package automl
