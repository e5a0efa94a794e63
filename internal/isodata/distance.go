package isodata

import (
	"gonum.org/v1/gonum/floats"
)

// pixelDistance is the mean squared per-band difference between a centre
// mean and a pixel. It is deliberately not a Euclidean distance.
func pixelDistance(mean, pixel []float64) float64 {
	var sum float64
	for b := range pixel {
		d := mean[b] - pixel[b]
		sum += d * d
	}
	return sum / float64(len(pixel))
}

// nearest returns the position of the centre closest to pixel and its
// distance. Only a strictly smaller distance displaces the current best, so
// the earliest centre wins ties. It returns -1 for an empty store.
func nearest(s Store, pixel []float64) (int, float64) {
	if len(s) == 0 {
		return -1, 0
	}
	best := 0
	minDist := pixelDistance(s[0].Mean, pixel)
	for i := 1; i < len(s); i++ {
		if d := pixelDistance(s[i].Mean, pixel); d < minDist {
			minDist = d
			best = i
		}
	}
	return best, minDist
}

// centreDistance is the Euclidean distance between two centre means.
func centreDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
