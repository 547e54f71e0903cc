package training

import (
	"fmt"
	"math"
	"time"
)

// maxPerplexityExponent caps the loss fed into the exponential so the
// resulting perplexity stays finite and JSON-encodable after a divergence.
const maxPerplexityExponent = 700.0

// Perplexity converts a cross-entropy loss to perplexity. Losses beyond the
// cap, including non-finite ones, all map to the capped value.
func Perplexity(loss float64) float64 {
	if math.IsNaN(loss) || loss > maxPerplexityExponent {
		loss = maxPerplexityExponent
	}
	return math.Exp(loss)
}

// FormatDuration renders an elapsed wall-clock time as minutes and seconds
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// finiteOrZero keeps non-finite batch losses out of running metric sums.
// The gradient side handles them separately by skipping the window's step.
func finiteOrZero(loss float64) float64 {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0
	}
	return loss
}
