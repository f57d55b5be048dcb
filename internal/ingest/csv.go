package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"greenhouse_forecast/internal/model"
)

// soilColumn is the pseudo-feature index for the exogenous soil moisture column.
const soilColumn = model.NumFeatures

// columnAliases maps normalized header names to a feature (or soilColumn).
var columnAliases = map[string]int{
	"cppm":          int(model.CO2),
	"co2":           int(model.CO2),
	"co2_ppm":       int(model.CO2),
	"wind":          int(model.Wind),
	"wind_speed":    int(model.Wind),
	"hr":            int(model.Humidity),
	"rh":            int(model.Humidity),
	"humidity":      int(model.Humidity),
	"rad":           int(model.Radiation),
	"radiation":     int(model.Radiation),
	"temp":          int(model.Temperature),
	"temperature":   int(model.Temperature),
	"soil":          soilColumn,
	"soil_moisture": soilColumn,
}

// requiredFeatures must be present in every export. Wind and radiation
// default to 0 when missing.
var requiredFeatures = []model.Feature{model.CO2, model.Humidity, model.Temperature}

// GreenhouseParser parses greenhouse sensor CSV exports.
//
// Columns are matched by name after trimming and lowercasing, so both the
// reference dataset and operator exports work:
//
//	Cppm,Wind,HR,Rad,Temp
//	612.0,1.8,67.5,320.0,24.1
//
//	timestamp,temp,hr,cppm,soil_moisture
//	2024-05-01T10:00:00Z,24.1,67.5,612,41
//
// Mapping by name is what keeps the fixed feature order intact regardless of
// the column order in the file. Unknown columns are ignored.
type GreenhouseParser struct{}

func NewGreenhouseParser() *GreenhouseParser {
	return &GreenhouseParser{}
}

func (p *GreenhouseParser) Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	table := &Table{}
	hasSoil := columns[soilColumn] >= 0
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		row, soil, err := parseRecord(record, columns, lineNum)
		if err != nil {
			// Skip unparseable rows (e.g. "unavailable" sensor states)
			table.Skipped++
			continue
		}
		table.Rows = append(table.Rows, row)
		if hasSoil {
			table.Soil = append(table.Soil, soil)
		}
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("no valid rows in CSV (%d skipped)", table.Skipped)
	}
	return table, nil
}

// NormalizeColumnName trims, lowercases and replaces spaces and dashes.
func NormalizeColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}

// mapHeader returns the CSV column index for every feature and soil, -1 when absent.
func mapHeader(header []string) ([model.NumFeatures + 1]int, error) {
	var columns [model.NumFeatures + 1]int
	for i := range columns {
		columns[i] = -1
	}
	for i, name := range header {
		target, ok := columnAliases[NormalizeColumnName(name)]
		if !ok {
			continue
		}
		if columns[target] >= 0 {
			return columns, fmt.Errorf("duplicate column for %s: %q", columnLabel(target), name)
		}
		columns[target] = i
	}

	var missing []string
	for _, f := range requiredFeatures {
		if columns[f] < 0 {
			missing = append(missing, f.String())
		}
	}
	if len(missing) > 0 {
		return columns, fmt.Errorf("missing column in CSV: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRecord(record []string, columns [model.NumFeatures + 1]int, lineNum int) (model.FeatureVector, float64, error) {
	var row model.FeatureVector
	for f := 0; f < model.NumFeatures; f++ {
		idx := columns[f]
		if idx < 0 {
			continue
		}
		v, err := parseValue(record, idx)
		if err != nil {
			return row, 0, fmt.Errorf("line %d, %s: %w", lineNum, model.Feature(f), err)
		}
		row[f] = v
	}

	var soil float64
	if idx := columns[soilColumn]; idx >= 0 {
		v, err := parseValue(record, idx)
		if err != nil {
			return row, 0, fmt.Errorf("line %d, soil_moisture: %w", lineNum, err)
		}
		soil = v
	}
	return row, soil, nil
}

func parseValue(record []string, idx int) (float64, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("missing field %d", idx+1)
	}
	raw := strings.TrimSpace(record[idx])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing value %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", raw)
	}
	return v, nil
}

func columnLabel(target int) string {
	if target == soilColumn {
		return "soil_moisture"
	}
	return model.Feature(target).String()
}
