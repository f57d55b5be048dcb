// forecast-cli runs the greenhouse forecast on a CSV export and prints the
// result. The newest ten rows form the input window.
//
// Usage:
//
//	forecast-cli -csv readings.csv
//	forecast-cli -csv readings.csv -steps 48 -model model/greenhouse.json
//	forecast-cli -csv readings.csv -single
//	forecast-cli -csv readings.csv -format json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"greenhouse_forecast/internal/api"
	"greenhouse_forecast/internal/bootstrap"
	"greenhouse_forecast/internal/config"
	"greenhouse_forecast/internal/forecast"
	"greenhouse_forecast/internal/ingest"
	"greenhouse_forecast/internal/model"
)

func main() {
	cfg := config.Load()

	csvPath := flag.String("csv", "", "sensor CSV export (required)")
	modelPath := flag.String("model", cfg.ModelPath, "path to model JSON (empty = persistence baseline)")
	normPath := flag.String("normalizer", cfg.NormalizerPath, "path to normalizer JSON")
	referenceCSV := flag.String("reference-csv", cfg.ReferenceCSV, "dataset to fit the normalizer on")
	steps := flag.Int("steps", 0, "forecast horizon in steps (0 = default)")
	soil := flag.Float64("soil", -1, "soil moisture in % (negative = from CSV)")
	single := flag.Bool("single", false, "predict one step and suggest an action")
	format := flag.String("format", "table", "output format: table, csv or json")
	flag.StringVar(&cfg.FeedbackSource, "feedback", cfg.FeedbackSource, "row fed back each step: raw, clamped or normalized")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -csv is required")
		flag.Usage()
		os.Exit(2)
	}

	engineCfg, err := cfg.Forecast()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	engine, err := bootstrap.NewEngine(bootstrap.Artifacts{
		ModelPath:      *modelPath,
		NormalizerPath: *normPath,
		ReferenceCSV:   *referenceCSV,
	}, engineCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building engine: %v\n", err)
		os.Exit(1)
	}

	table, err := bootstrap.ReadTable(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	req := buildRequest(table, *soil, *steps)

	if *single {
		res, err := engine.PredictNext(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error predicting: %v\n", err)
			os.Exit(1)
		}
		err = writePrediction(os.Stdout, res, *format)
		exitOnError(err)
		return
	}

	res, err := engine.Forecast(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error forecasting: %v\n", err)
		os.Exit(1)
	}
	exitOnError(writeForecast(os.Stdout, res, *format))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

// buildRequest picks the soil moisture from the flag, the CSV soil column or
// the newest humidity, in that order.
func buildRequest(table *ingest.Table, soil float64, steps int) forecast.Request {
	window := bootstrap.Window(table)
	if soil < 0 {
		if v, ok := table.LastSoil(); ok {
			soil = v
		} else {
			soil = window[len(window)-1][model.Humidity]
		}
	}
	return forecast.Request{Window: window, SoilMoisture: soil, FutureSteps: steps}
}

func writeForecast(w io.Writer, res *forecast.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, api.ForecastFromResult(res))
	case "csv":
		fmt.Fprintln(w, "hour,temperature,humidity,co2,soil_moisture")
		for _, p := range res.Predictions {
			fmt.Fprintf(w, "%d,%.2f,%.2f,%.2f,%.2f\n", p.Hour, p.Temperature, p.Humidity, p.CO2, p.SoilMoisture)
		}
		return nil
	case "table":
		fmt.Fprintf(w, "%4s  %9s  %9s  %9s  %9s\n", "Hour", "Temp (°C)", "RH (%)", "CO₂ (ppm)", "Soil (%)")
		fmt.Fprintf(w, "%4s  %9s  %9s  %9s  %9s\n", "----", "---------", "---------", "---------", "---------")
		for _, p := range res.Predictions {
			fmt.Fprintf(w, "%4d  %9.2f  %9.2f  %9.2f  %9.2f\n", p.Hour, p.Temperature, p.Humidity, p.CO2, p.SoilMoisture)
		}
		fmt.Fprintln(w)
		m := res.Metrics
		fmt.Fprintf(w, "Temperature  avg %.2f  min %.2f  max %.2f  %s\n", m.Temperature.Avg, m.Temperature.Min, m.Temperature.Max, m.Temperature.Trend)
		fmt.Fprintf(w, "Humidity     avg %.2f  min %.2f  max %.2f  %s\n", m.Humidity.Avg, m.Humidity.Min, m.Humidity.Max, m.Humidity.Trend)
		fmt.Fprintf(w, "CO₂          avg %.2f  min %.2f  max %.2f  %s\n", m.CO2.Avg, m.CO2.Min, m.CO2.Max, m.CO2.Trend)
		if em := res.ErrorMetrics; em != nil {
			fmt.Fprintf(w, "Window fit   MAE %.2f  RMSE %.2f  R² %.4f\n", em.MAE, em.RMSE, em.R2)
		}
		writeRisk(w, res.Risk.Score, string(res.Risk.Label), res.Risk.Confidence, res.Risk.Anomaly, res.Risk.Recommendations)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writePrediction(w io.Writer, res *forecast.PredictionResult, format string) error {
	p := api.PredictionFromResult(res)
	switch format {
	case "json":
		return writeJSON(w, p)
	case "csv":
		fmt.Fprintln(w, "temperature,humidity,co2,radiation,wind,soil_moisture,auto_action")
		fmt.Fprintf(w, "%.2f,%.2f,%.2f,%.2f,%.2f,%.2f,%s\n", p.PredictedTemperature, p.PredictedHumidity,
			p.PredictedCO2, p.PredictedRadiation, p.PredictedWind, p.PredictedSoil, p.AutoAction)
		return nil
	case "table":
		fmt.Fprintf(w, "Temperature  %8.2f °C\n", p.PredictedTemperature)
		fmt.Fprintf(w, "Humidity     %8.2f %%\n", p.PredictedHumidity)
		fmt.Fprintf(w, "CO₂          %8.2f ppm\n", p.PredictedCO2)
		fmt.Fprintf(w, "Radiation    %8.2f W/m²\n", p.PredictedRadiation)
		fmt.Fprintf(w, "Wind         %8.2f m/s\n", p.PredictedWind)
		fmt.Fprintf(w, "Soil         %8.2f %%\n", p.PredictedSoil)
		fmt.Fprintf(w, "Action       %s\n", p.AutoAction)
		writeRisk(w, p.RiskScore, p.RiskLabel, p.Confidence, p.Anomaly, p.Recommendations)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeRisk(w io.Writer, score int, label string, confidence int, anomaly bool, recs []string) {
	fmt.Fprintf(w, "Risk         %d (%s), confidence %d%%\n", score, label, confidence)
	if anomaly {
		fmt.Fprintln(w, "Anomaly      yes")
	}
	if len(recs) > 0 {
		fmt.Fprintf(w, "Advice       %s\n", strings.Join(recs, "; "))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
