package isodata

import (
	"math"
	"slices"
)

// Centre is one spectral class: its mean vector plus the statistics gathered
// for it during the most recent passes.
type Centre struct {
	ID          int
	Mean        []float64
	StdDev      []float64
	Count       uint64
	AvgDistance float64
	Split       bool
}

func newCentre(id, bands int) *Centre {
	return &Centre{
		ID:     id,
		Mean:   make([]float64, bands),
		StdDev: make([]float64, bands),
	}
}

// idSource hands out class ids. Ids only ever increase; an id is never
// reused after its centre is merged away, eliminated or split.
type idSource struct {
	next int
}

func (s *idSource) take() int {
	id := s.next
	s.next++
	return id
}

// Store is an ordered set of centres. Position order decides nearest-centre
// ties, so mutations keep the relative order of survivors.
type Store []*Centre

func newStore(n, bands int, ids *idSource) Store {
	s := make(Store, n)
	for i := range s {
		s[i] = newCentre(ids.take(), bands)
	}
	return s
}

// zeroedCopy mirrors ids and shape with every vector and counter zeroed.
func (s Store) zeroedCopy() Store {
	out := make(Store, len(s))
	for i, c := range s {
		out[i] = newCentre(c.ID, len(c.Mean))
	}
	return out
}

// Clone returns a deep copy.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for i, c := range s {
		cc := *c
		cc.Mean = slices.Clone(c.Mean)
		cc.StdDev = slices.Clone(c.StdDev)
		out[i] = &cc
	}
	return out
}

// IDs returns the class ids in store order.
func (s Store) IDs() []int {
	ids := make([]int, len(s))
	for i, c := range s {
		ids[i] = c.ID
	}
	return ids
}

// eliminate drops every centre that gathered fewer than minNumVals pixels.
func (s *Store) eliminate(minNumVals uint64) int {
	before := len(*s)
	*s = slices.DeleteFunc(*s, func(c *Centre) bool {
		return c.Count < minNumVals
	})
	return before - len(*s)
}

// closePair scans pairs in store order and returns the position of the centre
// to drop from the first pair whose means lie strictly between 0 and
// minDistance apart, or -1. Of the pair the less populated centre goes; on
// equal counts the later one.
func (s Store) closePair(minDistance float64) int {
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			d := centreDistance(s[i].Mean, s[j].Mean)
			if d > 0 && d < minDistance {
				if s[i].Count < s[j].Count {
					return i
				}
				return j
			}
		}
	}
	return -1
}

// mergeClose removes one centre of each close pair, rescanning from the start
// after every removal, until no close pair is left.
func (s *Store) mergeClose(minDistance float64) int {
	merged := 0
	for {
		drop := s.closePair(minDistance)
		if drop < 0 {
			return merged
		}
		*s = slices.Delete(*s, drop, drop+1)
		merged++
	}
}

// markSplits flags centres whose average pixel distance exceeds
// prop*globalMean, or failing that whose spread in any band exceeds
// stddevThreshold. NaN statistics never trigger a flag.
func (s Store) markSplits(globalMean, prop, stddevThreshold float64) int {
	n := 0
	for _, c := range s {
		c.Split = false
		if c.AvgDistance > globalMean*prop {
			c.Split = true
		} else {
			for _, sd := range c.StdDev {
				if sd > stddevThreshold {
					c.Split = true
					break
				}
			}
		}
		if c.Split {
			n++
		}
	}
	return n
}

// split replaces each flagged centre by two children at mean+stddev and
// mean-stddev. Children carry fresh ids, are appended in parent order and
// start with zeroed statistics.
func (s *Store) split(ids *idSource) int {
	n := 0
	for {
		i := slices.IndexFunc(*s, func(c *Centre) bool { return c.Split })
		if i < 0 {
			return n
		}
		parent := (*s)[i]
		*s = slices.Delete(*s, i, i+1)

		bands := len(parent.Mean)
		plus := newCentre(ids.take(), bands)
		minus := newCentre(ids.take(), bands)
		for b := 0; b < bands; b++ {
			plus.Mean[b] = parent.Mean[b] + parent.StdDev[b]
			minus.Mean[b] = parent.Mean[b] - parent.StdDev[b]
		}
		*s = append(*s, plus, minus)
		n++
	}
}

// renumber makes ids contiguous from 0 in store order.
func (s Store) renumber() {
	for i, c := range s {
		c.ID = i
	}
}

// finaliseMeans turns the accumulated sums in next into means. next mirrors
// prev position for position; a centre that drew no pixels keeps its previous
// mean.
func finaliseMeans(next, prev Store) {
	for i, c := range next {
		if c.Count == 0 {
			copy(c.Mean, prev[i].Mean)
		} else {
			n := float64(c.Count)
			for b := range c.Mean {
				c.Mean[b] /= n
			}
		}
		c.AvgDistance /= float64(c.Count)
	}
}

// finaliseStdDev turns accumulated squared deviations into standard deviations.
func finaliseStdDev(s Store) {
	for _, c := range s {
		n := float64(c.Count)
		for b := range c.StdDev {
			c.StdDev[b] = math.Sqrt(c.StdDev[b] / n)
		}
	}
}
