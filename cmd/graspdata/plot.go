package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/Noofbiz/graspData/datasets"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const histogramBins = 30

// splitColumn returns feature column col of the batch, split by label.
func splitColumn(b *datasets.Batch, col int) (good, bad []float64, err error) {
	if col < 0 || col >= b.Features.Cols {
		return nil, nil, fmt.Errorf("feature column %d out of range [0, %d)", col, b.Features.Cols)
	}
	for i := range b.Len() {
		v := float64(b.Features.Data[i*b.Features.Cols+col])
		if b.Labels != nil && b.Labels[i] == 0 {
			bad = append(bad, v)
		} else {
			good = append(good, v)
		}
	}
	return good, bad, nil
}

// plotFeatureHistogram writes a PNG with overlaid histograms of good (blue)
// and bad (red) grasps.
func plotFeatureHistogram(outPath string, col int, good, bad []float64) error {
	if len(good) == 0 && len(bad) == 0 {
		return fmt.Errorf("no values to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Feature %d: good (blue) vs bad (red)", col)
	p.X.Label.Text = "value"
	p.Y.Label.Text = "count"

	for _, series := range []struct {
		name   string
		values []float64
		color  color.RGBA
	}{
		{"good", good, color.RGBA{R: 20, G: 80, B: 200, A: 160}},
		{"bad", bad, color.RGBA{R: 200, G: 30, B: 30, A: 160}},
	} {
		if len(series.values) == 0 {
			continue
		}
		h, err := plotter.NewHist(plotter.Values(series.values), histogramBins)
		if err != nil {
			return err
		}
		h.FillColor = series.color
		h.LineStyle.Width = vg.Points(0.5)
		p.Add(h)
		p.Legend.Add(series.name, h)
	}
	p.Add(plotter.NewGrid())

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, outPath)
}
