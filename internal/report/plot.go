package report

import (
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"isoclass/internal/isodata"
	"isoclass/internal/raster"
)

var (
	movementColour  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColour = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	beforeColour    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	afterColour     = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// PlotConvergence draws centre movement (top) and centre count (bottom) per
// iteration and saves the chart as a PNG. Non-finite values are left out.
func PlotConvergence(path string, history []isodata.IterationStats, terminalThreshold float64) error {
	if len(history) == 0 {
		return errors.New("no iterations to plot")
	}

	pMove := plot.New()
	pMove.Title.Text = "Centre movement"
	pMove.X.Label.Text = "Iteration"
	pMove.Y.Label.Text = "Mean movement"

	pCount := plot.New()
	pCount.Title.Text = "Centre count"
	pCount.X.Label.Text = "Iteration"
	pCount.Y.Label.Text = "Centres"

	movePts := make(plotter.XYs, 0, len(history))
	beforePts := make(plotter.XYs, 0, len(history))
	afterPts := make(plotter.XYs, 0, len(history))
	for _, h := range history {
		x := float64(h.Iteration)
		if finite(h.CentreMovement) {
			movePts = append(movePts, plotter.XY{X: x, Y: h.CentreMovement})
		}
		beforePts = append(beforePts, plotter.XY{X: x, Y: float64(h.Centres)})
		afterPts = append(afterPts, plotter.XY{X: x, Y: float64(h.CentresAfter)})
	}

	if err := addLine(pMove, "movement", movePts, movementColour); err != nil {
		return err
	}
	if finite(terminalThreshold) {
		thr := plotter.NewFunction(func(float64) float64 { return terminalThreshold })
		thr.Color = thresholdColour
		thr.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		pMove.Add(thr)
		pMove.Legend.Add("threshold", thr)
	}
	if err := addLine(pCount, "assigned", beforePts, beforeColour); err != nil {
		return err
	}
	if err := addLine(pCount, "after split/merge", afterPts, afterColour); err != nil {
		return err
	}

	for _, p := range []*plot.Plot{pMove, pCount} {
		p.Legend.Top = true
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}

	img := vgimg.New(10*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{{pMove}, {pCount}}, tiles, dc)
	pMove.Draw(canvases[0][0])
	pCount.Draw(canvases[1][0])

	return raster.WritePNG(path, img.Image())
}
