package arq

import (
	"math"
	"time"
)

// Efficiency returns the fraction of time a sender with the given window
// keeps the link busy on an error-free channel: W*Tt / (Tt + 2*Tp),
// capped at 1. transmission is the time to put one frame on the wire,
// propagation the one-way delay.
func Efficiency(window int, transmission, propagation time.Duration) float64 {
	if window < 1 || transmission <= 0 || propagation < 0 {
		return 0
	}
	cycle := float64(transmission + 2*propagation)
	return math.Min(1, float64(window)*float64(transmission)/cycle)
}

// MinWindow returns the smallest window that keeps the link fully
// utilized: 1 + 2a, where a = propagation / transmission.
func MinWindow(transmission, propagation time.Duration) int {
	if transmission <= 0 {
		return 0
	}
	a := float64(propagation) / float64(transmission)
	return int(math.Ceil(1 + 2*a))
}
