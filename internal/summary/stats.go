package summary

import (
	"math"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Number is a numeric type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Mean returns the arithmetic mean of xs, or 0 if xs is empty.
func Mean[T Number](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	var total float64
	for _, x := range xs {
		total += float64(x)
	}
	return total / float64(len(xs))
}

// StdDev returns the sample standard deviation of xs. It needs at least two
// values.
func StdDev[T Number](xs []T) (float64, error) {
	if len(xs) < 2 {
		return 0, ErrTooFewSamples
	}
	mean := Mean(xs)
	var sq float64
	for _, x := range xs {
		d := float64(x) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1)), nil
}

// MinMax returns the smallest and largest values of xs.
func MinMax[T Number](xs []T) (T, T) {
	var lo, hi T
	for i, x := range xs {
		if i == 0 || x < lo {
			lo = x
		}
		if i == 0 || x > hi {
			hi = x
		}
	}
	return lo, hi
}

// Round rounds x to the given number of decimal places, halves away from
// zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// FormatFloat formats x with the fewest digits needed, e.g. 9.9 or 7.
func FormatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
