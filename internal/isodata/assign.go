package isodata

import (
	"gonum.org/v1/gonum/floats"

	"isoclass/internal/raster"
)

// AssignmentPass assigns each pixel to its nearest current centre and sums
// the pixel into a working copy of the store that becomes the next
// generation of centres.
type AssignmentPass struct {
	current Store
	working Store
	// index maps a centre id to its position in working.
	index map[int]int

	sumDistance float64
	pixelsSeen  uint64
}

// NewAssignmentPass returns a pass reading from current.
func NewAssignmentPass(current Store) *AssignmentPass {
	p := &AssignmentPass{}
	p.Reset(current)
	return p
}

// Reset discards the working store, rebuilds a zeroed one shaped like
// current and clears the distance counters.
func (p *AssignmentPass) Reset(current Store) {
	p.current = current
	p.working = current.zeroedCopy()
	p.index = make(map[int]int, len(current))
	for i, c := range p.working {
		p.index[c.ID] = i
	}
	p.sumDistance = 0
	p.pixelsSeen = 0
}

func (p *AssignmentPass) Accumulate(pixel []float64) {
	i, d := nearest(p.current, pixel)
	if i < 0 {
		return
	}
	w := p.working[p.index[p.current[i].ID]]
	floats.Add(w.Mean, pixel)
	w.Count++
	w.AvgDistance += d

	p.sumDistance += d
	p.pixelsSeen++
}

func (p *AssignmentPass) Fork() raster.Forkable {
	return &AssignmentPass{
		current: p.current,
		working: p.current.zeroedCopy(),
		index:   p.index,
	}
}

func (p *AssignmentPass) Join(part raster.Forkable) {
	q := part.(*AssignmentPass)
	for _, src := range q.working {
		dst := p.working[p.index[src.ID]]
		floats.Add(dst.Mean, src.Mean)
		dst.Count += src.Count
		dst.AvgDistance += src.AvgDistance
	}
	p.sumDistance += q.sumDistance
	p.pixelsSeen += q.pixelsSeen
}

// Working returns the next-generation store with raw sums, not yet divided.
func (p *AssignmentPass) Working() Store { return p.working }

// PixelsSeen is the number of pixels accumulated since the last Reset.
func (p *AssignmentPass) PixelsSeen() uint64 { return p.pixelsSeen }

// MeanDistance is the average assignment distance over every pixel seen.
// It is NaN when no pixel has been seen.
func (p *AssignmentPass) MeanDistance() float64 {
	return p.sumDistance / float64(p.pixelsSeen)
}
