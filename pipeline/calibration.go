package pipeline

// CalibrationCurve is the terminal artifact of one measurement run: a
// fitted polynomial mapping applied strain to the expected (filtered)
// capacitance reading, plus the fit's residual statistics.
//
// Coefficients are ordered lowest power first, so for the degree-1 fit
// produced here Coefficients[0] is the intercept and Coefficients[1]
// the slope. Degree is recorded on the artifact so consumers never have
// to assume the representation.
type CalibrationCurve struct {
	Degree             int       `json:"degree"`
	Coefficients       []float64 `json:"coefficients"`
	ResidualSumSquares float64   `json:"residual_sum_squares"`
	Samples            int       `json:"samples"`
}

// Intercept returns the constant coefficient.
func (c CalibrationCurve) Intercept() float64 {
	if len(c.Coefficients) < 1 {
		return 0
	}
	return c.Coefficients[0]
}

// Slope returns the linear coefficient: the fitted strain-to-capacitance
// gain, directly comparable with design.MechanicalProperties.Sensitivity.
func (c CalibrationCurve) Slope() float64 {
	if len(c.Coefficients) < 2 {
		return 0
	}
	return c.Coefficients[1]
}

// Predict evaluates the fitted curve at the given applied strain.
func (c CalibrationCurve) Predict(strain float64) float64 {
	value := 0.0
	pow := 1.0
	for _, coeff := range c.Coefficients {
		value += coeff * pow
		pow *= strain
	}
	return value
}

// fitLinear performs an ordinary least-squares degree-1 regression of ys
// against xs. Both slices must be the same non-zero length; the caller
// guarantees that. A degenerate abscissa (all strains identical) yields
// a flat curve through the mean.
func fitLinear(xs, ys []float64) CalibrationCurve {
	n := float64(len(xs))

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}

	slope := 0.0
	if sxx > 0 {
		slope = sxy / sxx
	}
	intercept := meanY - slope*meanX

	var rss float64
	for i := range xs {
		resid := ys[i] - (intercept + slope*xs[i])
		rss += resid * resid
	}

	return CalibrationCurve{
		Degree:             1,
		Coefficients:       []float64{intercept, slope},
		ResidualSumSquares: rss,
		Samples:            len(xs),
	}
}
