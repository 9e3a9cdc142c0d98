package flow

import "math"

// NumGrades is the dimensionality of material composition tracking. Models
// that do not track composition keep everything in component 0.
const NumGrades = 5

// Amount is a material quantity with composition: five grade components
// (x0..x4). The zero value is no material.
type Amount [NumGrades]float64

// Scalar builds an Amount holding v entirely in component 0.
func Scalar(v float64) Amount {
	return Amount{v}
}

// Total returns the summed quantity across components.
func (a Amount) Total() float64 {
	t := 0.0
	for _, g := range a {
		t += g
	}
	return t
}

// Add returns the componentwise sum of a and b.
func (a Amount) Add(b Amount) Amount {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

// Split removes qty from a proportionally across components, preserving
// composition. Returns the removed amount and the remainder. qty above the
// total removes everything.
func (a Amount) Split(qty float64) (removed, rest Amount) {
	total := a.Total()
	if total <= 0 || qty <= 0 {
		return Amount{}, a
	}
	if qty >= total {
		return a, Amount{}
	}
	frac := qty / total
	for i := range a {
		removed[i] = a[i] * frac
		rest[i] = a[i] - removed[i]
	}
	return removed, rest
}

// Scale returns a with every component multiplied by f.
func (a Amount) Scale(f float64) Amount {
	for i := range a {
		a[i] *= f
	}
	return a
}

// Normalized returns a scaled so components sum to 1, for use as grade
// proportions. A zero Amount normalizes to all-component-0.
func (a Amount) Normalized() Amount {
	t := a.Total()
	if t <= 0 {
		return Scalar(1)
	}
	return a.Scale(1 / t)
}

// Valid reports whether every component is finite and non-negative.
func (a Amount) Valid() bool {
	for _, g := range a {
		if g < 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
	}
	return true
}

// Item is a discrete resource unit (a truck, a pallet) with a stable
// identity and an optional material cargo.
type Item struct {
	ID    int
	Cargo Amount
}
