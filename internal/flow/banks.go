package flow

import "math/rand/v2"

// Sampling helpers for fallback synthesis. Identity data (names, phones,
// emails, addresses) comes from the run's seeded faker; these cover the
// categorical draws the generators make on top of it.

// weightedOption pairs a categorical value with its selection weight.
type weightedOption struct {
	value  string
	weight float64
}

// pickWeighted draws one value from a weighted categorical distribution.
func pickWeighted(r *rand.Rand, options []weightedOption) string {
	var total float64
	for _, o := range options {
		total += o.weight
	}
	roll := r.Float64() * total
	for _, o := range options {
		roll -= o.weight
		if roll < 0 {
			return o.value
		}
	}
	return options[len(options)-1].value
}

// pick draws one element uniformly from a non-empty slice.
func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// chance reports true with probability p.
func chance(r *rand.Rand, p float64) bool {
	return r.Float64() < p
}
