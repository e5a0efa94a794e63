// Package isodata implements an ISODATA unsupervised classifier for
// multi-band rasters. Starting from randomly seeded centres it repeatedly
// assigns pixels to their nearest centre, recomputes means, and then
// eliminates starved centres, merges close ones and splits spread-out ones
// until the centres stop moving or the iteration budget runs out.
package isodata

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"isoclass/internal/monitoring"
	"isoclass/internal/raster"
)

// State is the classifier's position in its lifecycle.
type State int

const (
	Uninitialised State = iota
	CentresInitialised
	Iterating
	Converged
	MaxIterationsReached
	OutputGenerated
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "uninitialised"
	case CentresInitialised:
		return "centres initialised"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max iterations reached"
	case OutputGenerated:
		return "output generated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithWorkers sets how many goroutines share each image pass. Values below 2
// give a single sequential sweep.
func WithWorkers(n int) Option {
	return func(c *Classifier) { c.workers = n }
}

// WithSeed makes centre initialisation reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Classifier) { c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithLogger replaces the "[isodata]"-tagged monitoring logger.
func WithLogger(logf monitoring.LogFunc) Option {
	return func(c *Classifier) { c.logf = logf }
}

// Classifier drives the ISODATA state machine over one source raster.
type Classifier struct {
	open    raster.OpenFunc
	src     raster.Source
	workers int
	rng     *rand.Rand
	logf    monitoring.LogFunc

	ids     idSource
	centres Store
	assign  *AssignmentPass
	stddev  *StdDevPass
	state   State
	history []IterationStats
	labels  *raster.LabelImage
}

// New returns a classifier that opens its source with open on first use.
func New(open raster.OpenFunc, opts ...Option) *Classifier {
	c := &Classifier{open: open, workers: 1}
	for _, opt := range opts {
		opt(c)
	}
	if c.logf == nil {
		c.logf = monitoring.For("isodata")
	}
	if c.rng == nil {
		now := uint64(time.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return c
}

func (c *Classifier) log(format string, v ...interface{}) {
	c.logf(format, v...)
}

// State returns the current lifecycle state.
func (c *Classifier) State() State { return c.state }

// Centres returns a copy of the current centres.
func (c *Classifier) Centres() Store { return c.centres.Clone() }

// History returns per-iteration diagnostics of the last IterateUntilConverged.
func (c *Classifier) History() []IterationStats {
	return append([]IterationStats(nil), c.history...)
}

// Labels returns the label raster of the last GenerateOutputImage, or nil.
func (c *Classifier) Labels() *raster.LabelImage { return c.labels }

// Bands is the band count of the opened source, or 0 before it is opened.
func (c *Classifier) Bands() int {
	if c.src == nil {
		return 0
	}
	return c.src.Bands()
}

func (c *Classifier) source() (raster.Source, error) {
	if c.src != nil {
		return c.src, nil
	}
	if c.open == nil {
		return nil, errors.New("no raster opener configured")
	}
	src, err := c.open()
	if err != nil {
		return nil, err
	}
	c.src = src
	return src, nil
}

// passError classifies a failure of a full-image pass.
func passError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindCanceled, op, err)
	}
	return newError(KindIO, op, err)
}

// InitializeRandom seeds numClusters centres, each band drawn uniformly from
// that band's [min, max] over the whole source raster.
func (c *Classifier) InitializeRandom(ctx context.Context, numClusters int) error {
	const op = "initialise"
	if numClusters < 1 {
		return newError(KindPrecondition, op, fmt.Errorf("number of clusters must be positive, got %d", numClusters))
	}

	src, err := c.source()
	if err != nil {
		return newError(KindIO, op, fmt.Errorf("opening source raster: %w", err))
	}

	stats, err := raster.Stats(ctx, src, c.workers)
	if err != nil {
		return passError(op, fmt.Errorf("computing band statistics: %w", err))
	}

	centres := newStore(numClusters, src.Bands(), &c.ids)
	for _, centre := range centres {
		for b, st := range stats {
			centre.Mean[b] = st.Min + c.rng.Float64()*(st.Max-st.Min)
		}
	}

	c.centres = centres
	c.assign = NewAssignmentPass(centres)
	c.stddev = NewStdDevPass(centres)
	c.history = nil
	c.labels = nil
	c.state = CentresInitialised

	c.log("initialised %d centres over %d bands", numClusters, src.Bands())
	return nil
}

// InitializeKMeansPP is the k-means++ seeding variant. It is not
// implemented and always fails without changing the classifier.
func (c *Classifier) InitializeKMeansPP(ctx context.Context, numClusters int) error {
	return newError(KindNotImplemented, "initialise k-means++", ErrNotImplemented)
}

// Classify renumbers the centres 0..K-1 in store order and labels every
// pixel of the source with its nearest centre.
func (c *Classifier) Classify(ctx context.Context) (*raster.LabelImage, error) {
	const op = "classify"
	if c.state == Uninitialised {
		return nil, newError(KindPrecondition, op, ErrNotInitialised)
	}
	if len(c.centres) == 0 {
		return nil, newError(KindNumeric, op, ErrNoCentres)
	}

	// Renumber a copy so a failed pass leaves the ids untouched.
	renumbered := c.centres.Clone()
	renumbered.renumber()
	labels, err := raster.Label(ctx, c.src, NewLabelPass(renumbered), c.workers)
	if err != nil {
		return nil, passError(op, err)
	}
	c.centres = renumbered
	return labels, nil
}

// GenerateOutputImage classifies the source and writes the single-band label
// raster to path. Nothing is written unless the whole pass succeeds.
func (c *Classifier) GenerateOutputImage(ctx context.Context, path string) error {
	labels, err := c.Classify(ctx)
	if err != nil {
		return err
	}
	if err := raster.WriteLabels(path, labels); err != nil {
		return newError(KindIO, "write output", err)
	}
	c.labels = labels
	c.state = OutputGenerated
	c.log("wrote %d classes to %s", len(c.centres), path)
	return nil
}
