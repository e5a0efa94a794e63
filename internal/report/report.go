// Package report writes the run summary of a classification: a JSON report,
// a CSV table of the final centres and a convergence chart.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"isoclass/internal/isodata"
	"isoclass/internal/thematic"
)

// Number is a float64 that survives JSON encoding when it is NaN or
// infinite. Non-finite values are written as the strings "NaN", "+Inf" and
// "-Inf".
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func numbers(v []float64) []Number {
	out := make([]Number, len(v))
	for i, f := range v {
		out[i] = Number(f)
	}
	return out
}

type Params struct {
	TerminalThreshold         Number `json:"terminal_threshold"`
	MaxIterations             int    `json:"max_iterations"`
	MinNumVals                uint64 `json:"min_num_vals"`
	MinDistanceBetweenCentres Number `json:"min_distance_between_centres"`
	StdDevThreshold           Number `json:"stddev_threshold"`
	PropOverAvgDist           Number `json:"prop_over_avg_dist"`
}

type Iteration struct {
	Iteration       int    `json:"iteration"`
	Centres         int    `json:"centres"`
	MeanDistance    Number `json:"mean_distance"`
	CentreMovement  Number `json:"centre_movement"`
	Converged       bool   `json:"converged"`
	Eliminated      int    `json:"eliminated"`
	Merged          int    `json:"merged"`
	SplitCandidates int    `json:"split_candidates"`
	CentresAfter    int    `json:"centres_after"`
}

type Centre struct {
	ID          int      `json:"id"`
	Count       uint64   `json:"count"`
	Mean        []Number `json:"mean"`
	StdDev      []Number `json:"stddev"`
	AvgDistance Number   `json:"avg_distance"`
}

// Report is the JSON summary of one classifier run.
type Report struct {
	RunID      string                `json:"run_id"`
	CreatedAt  time.Time             `json:"created_at"`
	Input      string                `json:"input,omitempty"`
	Output     string                `json:"output,omitempty"`
	Bands      int                   `json:"bands"`
	State      string                `json:"state"`
	Params     Params                `json:"params"`
	Iterations []Iteration           `json:"iterations"`
	Centres    []Centre              `json:"centres"`
	Classes    []thematic.ClassShare `json:"classes,omitempty"`
}

// New builds a report from the classifier's current state.
func New(c *isodata.Classifier, p isodata.Params) *Report {
	r := &Report{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Bands:     c.Bands(),
		State:     c.State().String(),
		Params: Params{
			TerminalThreshold:         Number(p.TerminalThreshold),
			MaxIterations:             p.MaxIterations,
			MinNumVals:                p.MinNumVals,
			MinDistanceBetweenCentres: Number(p.MinDistanceBetweenCentres),
			StdDevThreshold:           Number(p.StdDevThreshold),
			PropOverAvgDist:           Number(p.PropOverAvgDist),
		},
		Iterations: make([]Iteration, 0),
		Centres:    make([]Centre, 0),
	}

	for _, h := range c.History() {
		r.Iterations = append(r.Iterations, Iteration{
			Iteration:       h.Iteration,
			Centres:         h.Centres,
			MeanDistance:    Number(h.MeanDistance),
			CentreMovement:  Number(h.CentreMovement),
			Converged:       h.Converged,
			Eliminated:      h.Eliminated,
			Merged:          h.Merged,
			SplitCandidates: h.SplitCandidates,
			CentresAfter:    h.CentresAfter,
		})
	}
	for _, ctr := range c.Centres() {
		r.Centres = append(r.Centres, Centre{
			ID:          ctr.ID,
			Count:       ctr.Count,
			Mean:        numbers(ctr.Mean),
			StdDev:      numbers(ctr.StdDev),
			AvgDistance: Number(ctr.AvgDistance),
		})
	}
	return r
}

// Write saves the report as indented JSON.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// WriteCentres writes one CSV row per centre: id, pixel count, then the mean
// and standard deviation of each band.
func WriteCentres(path string, centres isodata.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating centre table: %w", err)
	}
	defer f.Close()

	bands := 0
	if len(centres) > 0 {
		bands = len(centres[0].Mean)
	}
	header := []string{"id", "count"}
	for b := 0; b < bands; b++ {
		header = append(header, fmt.Sprintf("mean_%d", b))
	}
	for b := 0; b < bands; b++ {
		header = append(header, fmt.Sprintf("stddev_%d", b))
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("error writing centre table: %w", err)
	}
	for _, c := range centres {
		row := []string{strconv.Itoa(c.ID), strconv.FormatUint(c.Count, 10)}
		for _, v := range c.Mean {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range c.StdDev {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("error writing centre table: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error writing centre table: %w", err)
	}
	return f.Close()
}
