package sim

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Recorder keeps every Nth Sample for plotting.
type Recorder struct {
	Every   int
	Samples []Sample
	n       int
}

func (r *Recorder) Observe(s Sample) error {
	every := max(r.Every, 1)
	if r.n%every == 0 {
		r.Samples = append(r.Samples, s)
	}
	r.n++
	return nil
}

var (
	trueColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	estColor  = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// Plot writes one PNG per Euler angle into dir, true and estimated attitude
// against time, plus one chart of the three errors. It returns the files
// written.
func Plot(samples []Sample, dir, name string) ([]string, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("sim: nothing to plot for %s", name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var files []string
	for i, axis := range Axes {
		tru := make(plotter.XYs, len(samples))
		est := make(plotter.XYs, len(samples))
		for j, s := range samples {
			tru[j] = plotter.XY{X: s.T, Y: s.True[i] / deg}
			est[j] = plotter.XY{X: s.T, Y: s.Estimate[i] / deg}
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s - %s", name, axis)
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = "Angle (°)"
		if err := addLine(p, "true", tru, trueColor); err != nil {
			return files, err
		}
		if err := addLine(p, "estimate", est, estColor); err != nil {
			return files, err
		}
		p.Legend.Top = true

		fn := filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, axis))
		if err := p.Save(14*vg.Inch, 6*vg.Inch, fn); err != nil {
			return files, fmt.Errorf("sim: saving %s: %w", fn, err)
		}
		files = append(files, fn)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - estimation error", name)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Error (°)"
	palette := []color.Color{trueColor, estColor, color.RGBA{G: 0x80, A: 0xff}}
	for i, axis := range Axes {
		pts := make(plotter.XYs, len(samples))
		for j, s := range samples {
			pts[j] = plotter.XY{X: s.T, Y: s.Error[i] / deg}
		}
		if err := addLine(p, axis, pts, palette[i]); err != nil {
			return files, err
		}
	}
	p.Legend.Top = true
	fn := filepath.Join(dir, name+"_error.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, fn); err != nil {
		return files, fmt.Errorf("sim: saving %s: %w", fn, err)
	}
	return append(files, fn), nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = vg.Points(1)
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}
