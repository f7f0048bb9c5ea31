package forecast

// BuildRequest maps observations to the endpoint request. The target is the
// observation values in their original order. Gaps are not filled and the
// parameters are passed through as given.
func BuildRequest(obs []Observation, predictionLength int, quantileLevels []float64) Request {
	target := make([]float64, len(obs))
	for i, o := range obs {
		target[i] = o.Value
	}

	levels := make([]float64, len(quantileLevels))
	copy(levels, quantileLevels)

	return Request{
		Target:           target,
		PredictionLength: predictionLength,
		QuantileLevels:   levels,
	}
}
