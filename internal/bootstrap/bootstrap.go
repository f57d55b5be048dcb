// Package bootstrap loads model artifacts and builds the forecast engine
// shared by the server and the CLI.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"os"

	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/model"
	"greenhouse_forecast/internal/predictor"
)

// Artifacts names the files an engine is built from. All are optional.
type Artifacts struct {
	ModelPath      string // SavedModel JSON
	NormalizerPath string // standalone normalizer JSON, overrides the model's
	ReferenceCSV   string // dataset to fit a normalizer on when none is given
}

var errNoNormalizer = errors.New("model has no normalizer: set a normalizer file or a reference CSV")

// identityNormalizer leaves values untouched. It only pairs with the
// persistence baseline, which is scale-free.
func identityNormalizer() predictor.Normalizer {
	var n predictor.Normalizer
	for f := range n.Std {
		n.Std[f] = 1
	}
	return n
}

// Load resolves the predictor and normalizer.
//
// Without a model the persistence baseline is used. The normalizer comes
// from, in order: NormalizerPath, the model artifact, ReferenceCSV.
func Load(art Artifacts) (predictor.Normalizer, predictor.SequencePredictor, error) {
	var (
		norm predictor.Normalizer
		pred predictor.SequencePredictor
	)

	if art.ModelPath != "" {
		data, err := os.ReadFile(art.ModelPath)
		if err != nil {
			return norm, nil, fmt.Errorf("reading model: %w", err)
		}
		np, modelNorm, err := predictor.LoadModel(data)
		if err != nil {
			return norm, nil, fmt.Errorf("loading model %s: %w", art.ModelPath, err)
		}
		log.Printf("Loaded model from %s", art.ModelPath)
		pred, norm = np, modelNorm
	} else {
		log.Printf("Warning: no model configured, using persistence baseline")
		pred = predictor.PersistencePredictor{}
	}

	if art.NormalizerPath != "" {
		data, err := os.ReadFile(art.NormalizerPath)
		if err != nil {
			return norm, nil, fmt.Errorf("reading normalizer: %w", err)
		}
		norm, err = predictor.LoadNormalizer(data)
		if err != nil {
			return norm, nil, fmt.Errorf("loading normalizer %s: %w", art.NormalizerPath, err)
		}
		log.Printf("Loaded normalizer from %s", art.NormalizerPath)
	}

	if norm.IsZero() && art.ReferenceCSV != "" {
		table, err := ReadTable(art.ReferenceCSV)
		if err != nil {
			return norm, nil, fmt.Errorf("reading reference dataset: %w", err)
		}
		norm, err = predictor.FitNormalizer(table.Rows)
		if err != nil {
			return norm, nil, fmt.Errorf("fitting normalizer: %w", err)
		}
		log.Printf("Fitted normalizer on %d rows from %s", len(table.Rows), art.ReferenceCSV)
	}

	if norm.IsZero() {
		if art.ModelPath != "" {
			return norm, nil, errNoNormalizer
		}
		norm = identityNormalizer()
	}
	return norm, pred, nil
}

// NewEngine loads the artifacts and builds an engine.
func NewEngine(art Artifacts, cfg forecast.Config) (*forecast.Engine, error) {
	norm, pred, err := Load(art)
	if err != nil {
		return nil, err
	}
	return forecast.New(norm, pred, cfg)
}

// ReadTable parses a sensor CSV file.
func ReadTable(path string) (*ingest.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	table, err := ingest.NewGreenhouseParser().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if table.Skipped > 0 {
		log.Printf("  Skipped %d unparseable rows in %s", table.Skipped, path)
	}
	return table, nil
}

// Window returns the newest rows of a table, at most model.SequenceLength.
func Window(table *ingest.Table) []model.FeatureVector {
	rows := table.Rows
	if len(rows) > model.SequenceLength {
		rows = rows[len(rows)-model.SequenceLength:]
	}
	return rows
}
