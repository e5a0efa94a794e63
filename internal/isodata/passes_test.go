package isodata

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isoclass/internal/raster"
)

func feed(acc raster.Accumulator, pixels ...[]float64) {
	for _, px := range pixels {
		acc.Accumulate(px)
	}
}

func TestAssignmentPassAccumulates(t *testing.T) {
	current := storeOf([]float64{0}, []float64{10})
	p := NewAssignmentPass(current)

	feed(p, []float64{1}, []float64{2}, []float64{9})

	w := p.Working()
	require.Len(t, w, 2)
	assert.Equal(t, []float64{3}, w[0].Mean)
	assert.Equal(t, uint64(2), w[0].Count)
	assert.Equal(t, 5.0, w[0].AvgDistance)
	assert.Equal(t, []float64{9}, w[1].Mean)
	assert.Equal(t, uint64(1), w[1].Count)
	assert.Equal(t, 1.0, w[1].AvgDistance)

	assert.Equal(t, uint64(3), p.PixelsSeen())
	assert.Equal(t, 2.0, p.MeanDistance())

	assert.Equal(t, []float64{0}, current[0].Mean, "current store is read-only")
	assert.Zero(t, current[0].Count)
}

func TestAssignmentPassMatchesByID(t *testing.T) {
	current := storeOf([]float64{0}, []float64{10})
	current[0].ID = 7
	current[1].ID = 3
	p := NewAssignmentPass(current)

	feed(p, []float64{11})

	w := p.Working()
	assert.Equal(t, []int{7, 3}, w.IDs())
	assert.Zero(t, w[0].Count)
	assert.Equal(t, uint64(1), w[1].Count)
}

func TestAssignmentPassReset(t *testing.T) {
	p := NewAssignmentPass(storeOf([]float64{0}))
	feed(p, []float64{4})

	next := storeOf([]float64{1}, []float64{2})
	p.Reset(next)
	assert.Equal(t, []int{0, 1}, p.Working().IDs())
	assert.Zero(t, p.Working()[0].Count)
	assert.Zero(t, p.PixelsSeen())
}

func TestAssignmentPassEmptyMeanDistanceIsNaN(t *testing.T) {
	p := NewAssignmentPass(storeOf([]float64{0}))
	assert.True(t, math.IsNaN(p.MeanDistance()))
}

func gradientImage(w, h int) *raster.Image {
	im := raster.NewImage(w, h, 2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.Set(x, y, float64(x%7), float64(y%11))
		}
	}
	return im
}

func TestAssignmentPassParallelMatchesSequential(t *testing.T) {
	im := gradientImage(13, 200)
	current := storeOf([]float64{0, 0}, []float64{6, 10}, []float64{3, 5})

	seq := NewAssignmentPass(current)
	require.NoError(t, raster.Accumulate(context.Background(), im, seq, 1))
	par := NewAssignmentPass(current)
	require.NoError(t, raster.Accumulate(context.Background(), im, par, 4))

	// Pixel values and distances here are small multiples of 1/2, so sums
	// are exact regardless of addition order.
	if diff := cmp.Diff(seq.Working(), par.Working()); diff != "" {
		t.Errorf("working stores differ (-seq +par):\n%s", diff)
	}
	assert.Equal(t, seq.PixelsSeen(), par.PixelsSeen())
	assert.Equal(t, seq.MeanDistance(), par.MeanDistance())
}

func TestStdDevPass(t *testing.T) {
	s := storeOf([]float64{0}, []float64{10})
	s[0].Count = 2
	s[1].Count = 1

	p := NewStdDevPass(s)
	feed(p, []float64{1}, []float64{3}, []float64{9})
	assert.Equal(t, []float64{10}, s[0].StdDev)
	assert.Equal(t, []float64{1}, s[1].StdDev)

	finaliseStdDev(s)
	assert.Equal(t, math.Sqrt(5), s[0].StdDev[0])
	assert.Equal(t, 1.0, s[1].StdDev[0])
}

func TestStdDevPassParallelMatchesSequential(t *testing.T) {
	im := gradientImage(9, 150)

	seqStore := storeOf([]float64{1, 1}, []float64{5, 8})
	require.NoError(t, raster.Accumulate(context.Background(), im, NewStdDevPass(seqStore), 1))

	parStore := storeOf([]float64{1, 1}, []float64{5, 8})
	require.NoError(t, raster.Accumulate(context.Background(), im, NewStdDevPass(parStore), 3))

	if diff := cmp.Diff(seqStore, parStore); diff != "" {
		t.Errorf("deviation sums differ (-seq +par):\n%s", diff)
	}
}

func TestLabelPass(t *testing.T) {
	s := storeOf([]float64{0}, []float64{10})
	s[0].ID = 4
	s[1].ID = 9
	p := NewLabelPass(s)
	assert.Equal(t, 4, p.Label([]float64{5}), "tie goes to the first centre")
	assert.Equal(t, 9, p.Label([]float64{8}))

	assert.Equal(t, -1, NewLabelPass(nil).Label([]float64{1}))
}
