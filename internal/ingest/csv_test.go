package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhouse_forecast/internal/model"
)

func TestGreenhouseParser_ReferenceDataset(t *testing.T) {
	input := `Cppm,Wind,HR,Rad,Temp
612.0,1.8,67.5,320.0,24.1
640.5,2.1,65.0,410.0,25.3`

	table, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, model.FeatureVector{612, 1.8, 67.5, 320, 24.1}, table.Rows[0])
	assert.Equal(t, model.FeatureVector{640.5, 2.1, 65, 410, 25.3}, table.Rows[1])
	assert.Nil(t, table.Soil)
	_, ok := table.LastSoil()
	assert.False(t, ok)
}

func TestGreenhouseParser_ReordersColumnsByName(t *testing.T) {
	input := ` Temp , HR ,timestamp,CPPM,Soil Moisture
24.1,67.5,2024-05-01T10:00:00Z,612,41
25.0,66.0,2024-05-01T11:00:00Z,630,39.5`

	table, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	// Wind and radiation are absent and default to zero.
	assert.Equal(t, model.FeatureVector{612, 0, 67.5, 0, 24.1}, table.Rows[0])
	assert.Equal(t, []float64{41, 39.5}, table.Soil)
	soil, ok := table.LastSoil()
	assert.True(t, ok)
	assert.Equal(t, 39.5, soil)
}

func TestGreenhouseParser_SkipsUnparseableRows(t *testing.T) {
	input := "\ufeffcppm,hr,temp\n" +
		"612,67.5,24.1\n" +
		"unavailable,67.5,24.1\n" +
		"630,NaN,25\n" +
		"640,66\n" +
		"650,65,26"

	table, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 3, table.Skipped)
	assert.Equal(t, 650.0, table.Rows[1][model.CO2])
}

func TestGreenhouseParser_MissingColumns(t *testing.T) {
	input := `wind,rad,temp
1,2,3`

	_, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "co2")
	assert.Contains(t, err.Error(), "humidity")
	assert.NotContains(t, err.Error(), "temperature")
}

func TestGreenhouseParser_DuplicateColumn(t *testing.T) {
	input := `cppm,co2,hr,temp
1,2,3,4`

	_, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	assert.ErrorContains(t, err, "duplicate")
}

func TestGreenhouseParser_NoValidRows(t *testing.T) {
	input := `cppm,hr,temp
a,b,c`

	_, err := NewGreenhouseParser().Parse(strings.NewReader(input))
	assert.ErrorContains(t, err, "no valid rows")
}

func TestGreenhouseParser_EmptyInput(t *testing.T) {
	_, err := NewGreenhouseParser().Parse(strings.NewReader(""))
	assert.ErrorContains(t, err, "header")
}

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Temp", "temp"},
		{"  HR ", "hr"},
		{"Soil Moisture", "soil_moisture"},
		{"wind-speed", "wind_speed"},
		{"\ufeffCppm", "cppm"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumnName(tt.in))
		})
	}
}
