package bags

import (
	"fmt"
	"math/rand"
	"sort"
)

//////
// Cross-validation fold construction.
//
// Folds are built once, from an explicit seed, and reused for every
// configuration: identical splits for every candidate keep the comparison
// fair, and the explicit seed keeps repeated runs identical.
//////

// KFold splits n rows into k folds. Rows are shuffled with the given seed,
// then dealt into k consecutive validation blocks; the first n%k folds get
// one extra row. Each row appears in exactly one validation set.
//
// Parameters:
// - n: number of dataset rows
// - k: number of folds, 2 <= k <= n
// - seed: source for the shuffle
//
// Returns:
// - []Fold: k folds covering all rows
// - error: when k is out of range.
func KFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("kfold: need 2 <= folds <= rows, got folds=%d rows=%d", k, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	folds := make([]Fold, k)
	base := n / k
	extra := n % k

	start := 0
	for i := range folds {
		size := base
		if i < extra {
			size++
		}

		folds[i] = foldFromValidation(perm, start, start+size)
		start += size
	}

	return folds, nil
}

// StratifiedKFold splits rows into k folds while preserving the label
// proportions of y in every fold as closely as possible: rows are grouped by
// label, each label's rows are shuffled with the seed, then dealt round-robin
// across the folds.
//
// Stratification protects small minority classes from producing degenerate
// single-class training folds, which would otherwise fail fits on models
// that require both classes.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	n := len(y)

	if k < 2 || k > n {
		return nil, fmt.Errorf("stratified kfold: need 2 <= folds <= rows, got folds=%d rows=%d", k, n)
	}

	byLabel := make(map[int][]int)
	for i, label := range y {
		byLabel[label] = append(byLabel[label], i)
	}

	// Deterministic label order: iterate labels ascending.
	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}

	sort.Ints(labels)

	rng := rand.New(rand.NewSource(seed))

	validation := make([][]int, k)

	for _, label := range labels {
		rows := byLabel[label]
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})

		for i, row := range rows {
			validation[i%k] = append(validation[i%k], row)
		}
	}

	folds := make([]Fold, k)
	for i := range folds {
		inValidation := make(map[int]bool, len(validation[i]))
		for _, row := range validation[i] {
			inValidation[row] = true
		}

		train := make([]int, 0, n-len(validation[i]))
		for row := 0; row < n; row++ {
			if !inValidation[row] {
				train = append(train, row)
			}
		}

		folds[i] = Fold{Train: train, Validation: validation[i]}
	}

	return folds, nil
}

// foldFromValidation builds a Fold whose validation set is perm[start:end]
// and whose train set is everything else, preserving perm order.
func foldFromValidation(perm []int, start, end int) Fold {
	validation := make([]int, end-start)
	copy(validation, perm[start:end])

	train := make([]int, 0, len(perm)-(end-start))
	train = append(train, perm[:start]...)
	train = append(train, perm[end:]...)

	return Fold{Train: train, Validation: validation}
}
