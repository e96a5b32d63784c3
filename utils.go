package bags

import "log/slog"

//////
// Helper functions.
//////

// logDebug logs through an optional logger; a nil logger is a no-op.
func logDebug(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}

	logger.Debug(msg, args...)
}

// spread returns max(values) - min(values), or 0 for fewer than two values.
// Used by both gap metrics; a spread over an empty or singleton set is
// defined as 0 so degenerate groups never poison an aggregate with NaN.
func spread(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	min, max := values[0], values[0]

	for _, v := range values[1:] {
		if v < min {
			min = v
		}

		if v > max {
			max = v
		}
	}

	return max - min
}

// mean returns the arithmetic mean, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
