package forecast

// Listener receives every successful result. Implementations must not
// modify the results and should return quickly.
type Listener interface {
	OnForecast(res *Result)
	OnPrediction(res *PredictionResult)
}

// Listeners fans results out to several listeners in order.
type Listeners []Listener

func (ls Listeners) OnForecast(res *Result) {
	for _, l := range ls {
		l.OnForecast(res)
	}
}

func (ls Listeners) OnPrediction(res *PredictionResult) {
	for _, l := range ls {
		l.OnPrediction(res)
	}
}
