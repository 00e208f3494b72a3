package util

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Coerce returns a value that is at least min and at most max
func Coerce[T constraints.Ordered](value, min, max T) T {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// Ratio calculates the ration that target has in comparison to rangeMin and rangeMax
// Make sure that:
// rangeMin <= target <= rangeMax
// rangeMax - rangeMin != 0
func Ratio(target float64, rangeMin float64, rangeMax float64) float64 {
	return (target - rangeMin) / (rangeMax - rangeMin)
}

// RoundTo rounds the given value to the given number of decimal places
func RoundTo(value float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(value*p) / p
}

// Interp returns the piecewise-linear interpolation of ys over xs at input.
// xs must be sorted ascending and have the same length as ys (at least one element).
// Inputs outside of the xs range are clamped to the first/last value.
func Interp(input float64, xs []float64, ys []float64) float64 {
	last := len(xs) - 1
	if input <= xs[0] {
		// input is below the smallest given step, so
		// we fall back to the value of the smallest step
		return ys[0]
	}
	if input >= xs[last] {
		// input is above (or equal to) the largest given
		// step, so we fall back to the value of the largest step
		return ys[last]
	}

	for i := 0; i < last; i++ {
		currentX := xs[i]
		nextX := xs[i+1]
		if input >= nextX {
			continue
		}
		if input == currentX {
			return ys[i]
		}

		// input is somewhere in between currentX and nextX
		ratio := Ratio(input, currentX, nextX)
		return ys[i] + ratio*(ys[i+1]-ys[i])
	}

	return ys[last]
}

// InterpolateLinearly samples the given curve at every step between start and stop (inclusive)
func InterpolateLinearly(xs []float64, ys []float64, start float64, stop float64, step float64) []float64 {
	var result []float64
	if step <= 0 {
		return result
	}
	for x := start; x <= stop; x += step {
		result = append(result, Interp(x, xs, ys))
	}
	return result
}
