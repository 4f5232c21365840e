// Package utils contains the small numeric and concurrency helpers shared by the other packages.
package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// ModAngDeg wraps an angle in degrees into [0, 360).
func ModAngDeg(ang float64) float64 {
	ang = math.Mod(math.Mod(ang, 360)+360, 360)
	// math.Mod of a tiny negative number can round up to exactly 360.
	if ang >= 360 {
		ang -= 360
	}
	return ang
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// ClampF64 returns a value that is clamped between the given min and max.
func ClampF64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampUint8 clamps a float into [0, 255] and truncates it to a uint8.
func ClampUint8(value float64) uint8 {
	return uint8(ClampF64(value, 0, 255))
}

// MaxInt returns the larger of two ints.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AbsInt returns the absolute value of an int.
func AbsInt(n int) int {
	if n < 0 {
		return -1 * n
	}
	return n
}

// Square is faster than math.Pow(n, 2).
func Square(n float64) float64 {
	return n * n
}
