package optimizer

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ClipGradNorm rescales gradients so their global L2 norm, measured across
// all parameters together, does not exceed maxNorm. Returns the norm as it
// was before clipping. A maxNorm of zero or below disables clipping.
func ClipGradNorm(params []*Parameter, maxNorm float64) float64 {
	total := 0.0
	for _, param := range params {
		norm := floats.Norm(param.Grad, 2)
		total += norm * norm
	}
	total = math.Sqrt(total)

	if maxNorm <= 0 || total <= maxNorm {
		return total
	}

	scale := maxNorm / (total + 1e-6)
	for _, param := range params {
		floats.Scale(scale, param.Grad)
	}

	return total
}
