// Package plotting renders forecast and training plots with gonum/plot.
// The output format follows the file extension (.png, .svg, .pdf).
package plotting

import (
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoPoints is returned when every value to plot is NaN or Inf.
var ErrNoPoints = errors.New("nothing finite to plot")

var (
	trueColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	predColor = color.RGBA{R: 220, G: 110, B: 20, A: 255}
	gridColor = color.Gray{Y: 200}
)

// Predictions draws actual and predicted values against the window index,
// like a "True vs. Predicted" chart. Non-finite points are left out.
func Predictions(path, title, yLabel string, actual, predicted []float64) error {
	truth := series(actual)
	pred := series(predicted)
	if len(truth) == 0 && len(pred) == 0 {
		return ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time step"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	grid := plotter.NewGrid()
	grid.Vertical.Color = gridColor
	grid.Horizontal.Color = gridColor
	grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = grid.Vertical.Dashes
	p.Add(grid)

	if err := addLine(p, truth, "True", trueColor); err != nil {
		return err
	}
	if err := addLine(p, pred, "Predicted", predColor); err != nil {
		return err
	}

	xmin, xmax, ymin, ymax := autoRange(append(append(plotter.XYs{}, truth...), pred...))
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax

	return save(p, path, 12*vg.Inch, 5*vg.Inch)
}

// Loss draws the per-epoch training loss and, when finite, the final
// validation loss as a horizontal reference line.
func Loss(path string, epochLosses []float64, validLoss float64) error {
	pts := make(plotter.XYs, 0, len(epochLosses))
	for i, l := range epochLosses {
		if finite(l) {
			pts = append(pts, plotter.XY{X: float64(i + 1), Y: l})
		}
	}
	if len(pts) == 0 {
		return ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = "Training loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "MSE (scaled)"
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = trueColor
	points.Shape = draw.CircleGlyph{}
	points.Color = trueColor
	p.Add(line, points)
	p.Legend.Add("train", line, points)

	all := append(plotter.XYs{}, pts...)
	if finite(validLoss) {
		first, last := pts[0].X, pts[len(pts)-1].X
		ref := plotter.XYs{{X: first, Y: validLoss}, {X: last, Y: validLoss}}
		vl, err := plotter.NewLine(ref)
		if err != nil {
			return err
		}
		vl.Color = predColor
		vl.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(vl)
		p.Legend.Add("valid", vl)
		all = append(all, ref...)
	}

	xmin, xmax, ymin, ymax := autoRange(all)
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = math.Max(0, ymin), ymax

	return save(p, path, 8*vg.Inch, 5*vg.Inch)
}

func addLine(p *plot.Plot, xys plotter.XYs, label string, c color.Color) error {
	if len(xys) == 0 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = vg.Points(1)
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}

// series turns values into (index, value) points, dropping non-finite ones.
func series(values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if finite(v) {
			xys = append(xys, plotter.XY{X: float64(i), Y: v})
		}
	}
	return xys
}

func save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return p.Save(w, h, path)
}

// autoRange computes padded min/max for X and Y for a set of points.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	if len(xs) == 0 {
		return -1, 1, -1, 1
	}
	xmin = math.Inf(1)
	xmax = math.Inf(-1)
	ymin = math.Inf(1)
	ymax = math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.02
	pady := (ymax - ymin) * 0.06
	if padx == 0 {
		padx = 1.0
	}
	if pady == 0 {
		pady = 1.0
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
