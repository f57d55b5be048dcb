package ingest

import (
	"io"

	"greenhouse_forecast/internal/model"
)

// Parser reads sensor rows from a source.
type Parser interface {
	Parse(r io.Reader) (*Table, error)
}

// Table is a parsed sensor export, oldest row first.
type Table struct {
	Rows []model.FeatureVector
	// Soil holds one value per row, or nil when the export has no soil column.
	Soil []float64
	// Skipped counts rows dropped because a value could not be parsed.
	Skipped int
}

// LastSoil returns the newest soil moisture value, if the export had one.
func (t *Table) LastSoil() (float64, bool) {
	if len(t.Soil) == 0 {
		return 0, false
	}
	return t.Soil[len(t.Soil)-1], true
}
