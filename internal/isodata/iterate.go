package isodata

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"isoclass/internal/raster"
)

// Params are the ISODATA iteration controls.
type Params struct {
	// TerminalThreshold stops iterating once the mean centre movement of an
	// iteration falls below it.
	TerminalThreshold float64
	MaxIterations     int
	// MinNumVals is the pixel count below which a centre is eliminated.
	MinNumVals uint64
	// MinDistanceBetweenCentres merges centres closer than this.
	MinDistanceBetweenCentres float64
	// StdDevThreshold splits centres with a band deviation above it.
	StdDevThreshold float64
	// PropOverAvgDist splits centres whose average pixel distance exceeds
	// this multiple of the image-wide average.
	PropOverAvgDist float64
}

// IterationStats records what one iteration did.
type IterationStats struct {
	Iteration       int     `json:"iteration"`
	Centres         int     `json:"centres"`
	MeanDistance    float64 `json:"mean_distance"`
	CentreMovement  float64 `json:"centre_movement"`
	Converged       bool    `json:"converged"`
	Eliminated      int     `json:"eliminated"`
	Merged          int     `json:"merged"`
	SplitCandidates int     `json:"split_candidates"`
	CentresAfter    int     `json:"centres_after"`
}

// centreMovement is the average Euclidean distance each centre moved.
func centreMovement(prev, next Store) float64 {
	moved := make([]float64, len(next))
	for i := range next {
		moved[i] = centreDistance(prev[i].Mean, next[i].Mean)
	}
	return stat.Mean(moved, nil)
}

// IterateUntilConverged runs ISODATA iterations until the centres settle or
// p.MaxIterations iterations have run. At least one iteration always runs.
func (c *Classifier) IterateUntilConverged(ctx context.Context, p Params) error {
	const op = "iterate"
	if c.state == Uninitialised {
		return newError(KindPrecondition, op, ErrNotInitialised)
	}

	c.state = Iterating
	c.history = nil
	c.assign.Reset(c.centres)

	for iter := 1; ; iter++ {
		st := IterationStats{Iteration: iter, Centres: len(c.centres)}

		if err := raster.Accumulate(ctx, c.src, c.assign, c.workers); err != nil {
			return passError("assignment pass", err)
		}
		next := c.assign.Working()
		// Read before the store is mutated; the split test uses this value
		// even after elimination and merging have changed the store.
		meanDistance := c.assign.MeanDistance()
		st.MeanDistance = meanDistance

		finaliseMeans(next, c.centres)
		st.CentreMovement = centreMovement(c.centres, next)

		if st.CentreMovement < p.TerminalThreshold {
			st.Converged = true
			st.CentresAfter = len(c.centres)
			c.history = append(c.history, st)
			c.state = Converged
			c.log("iteration %d: converged with %d centres (movement %.6g)", iter, len(c.centres), st.CentreMovement)
			return nil
		}

		c.centres = next
		st.Eliminated = c.centres.eliminate(p.MinNumVals)
		st.Merged = c.centres.mergeClose(p.MinDistanceBetweenCentres)
		if len(c.centres) == 0 {
			c.history = append(c.history, st)
			return newError(KindNumeric, op, ErrNoCentres)
		}

		c.stddev.Reset(c.centres)
		if err := raster.Accumulate(ctx, c.src, c.stddev, c.workers); err != nil {
			return passError("standard deviation pass", err)
		}
		finaliseStdDev(c.centres)

		st.SplitCandidates = c.centres.markSplits(meanDistance, p.PropOverAvgDist, p.StdDevThreshold)
		c.centres.split(&c.ids)
		st.CentresAfter = len(c.centres)
		c.history = append(c.history, st)

		c.log("iteration %d: %d centres (eliminated %d, merged %d, split %d), movement %.6g, mean distance %.6g",
			iter, len(c.centres), st.Eliminated, st.Merged, st.SplitCandidates, st.CentreMovement, meanDistance)

		c.assign.Reset(c.centres)
		if iter >= p.MaxIterations {
			c.state = MaxIterationsReached
			c.log("stopped after %d iterations without converging", iter)
			return nil
		}
	}
}
