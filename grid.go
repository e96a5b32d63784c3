package bags

import (
	"sort"

	"golang.org/x/exp/constraints"
)

//////
// Parameter grid enumeration.
//////

// ParamGrid is a declarative search space: each parameter name maps to the
// ordered list of candidate values to try.
//
// Usage example:
//
//	grid := bags.ParamGrid{
//	    "learning_rate": bags.Values(0.01, 0.1, 1.0),
//	    "epochs":        bags.Values(50, 200),
//	    "penalty":       bags.Strings("l2", "none"),
//	}
type ParamGrid map[string][]any

// Expand produces the full Cartesian product of the grid as concrete
// configurations, in a stable, reproducible order: parameter names are
// sorted lexicographically, the first name varies slowest, and candidate
// order is preserved within each name. Repeated calls over the same grid
// always yield the same sequence, which is what makes downstream
// tie-breaking deterministic.
//
// Returns:
// - []Configuration: the enumerated configurations
// - error: *InvalidGridError for an empty grid or a parameter with zero
//   candidates.
func (g ParamGrid) Expand() ([]Configuration, error) {
	if len(g) == 0 {
		return nil, &InvalidGridError{}
	}

	names := make([]string, 0, len(g))
	for name := range g {
		if len(g[name]) == 0 {
			return nil, &InvalidGridError{Parameter: name}
		}

		names = append(names, name)
	}

	sort.Strings(names)

	total := 1
	for _, name := range names {
		total *= len(g[name])
	}

	configs := make([]Configuration, 0, total)

	// Odometer over candidate indices; the last (lexicographically largest)
	// name ticks fastest.
	indices := make([]int, len(names))

	for {
		cfg := make(Configuration, len(names))
		for i, name := range names {
			cfg[name] = g[name][indices[i]]
		}

		configs = append(configs, cfg)

		pos := len(names) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(g[names[pos]]) {
				break
			}

			indices[pos] = 0
			pos--
		}

		if pos < 0 {
			return configs, nil
		}
	}
}

// Values builds a candidate list from numeric literals, so grids read
// naturally without per-value conversions to any.
func Values[T constraints.Integer | constraints.Float](vals ...T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}

	return out
}

// Strings builds a candidate list from string literals.
func Strings(vals ...string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}

	return out
}
