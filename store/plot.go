package store

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"freettes/model"
)

// PlotProfile draws temperature over height, one line per snapshot, and
// saves it to path. The extension selects the image format.
func PlotProfile(path string, snapshots ...model.Snapshot) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("no profile to plot")
	}
	p := plot.New()
	p.Title.Text = "Temperature profile"
	p.X.Label.Text = "Temperature (°C)"
	p.Y.Label.Text = "Height (m)"
	p.Add(plotter.NewGrid())

	for i, s := range snapshots {
		if len(s.Heights) != len(s.Temps) {
			return fmt.Errorf("snapshot t = %v h: %d heights for %d temperatures", s.T, len(s.Heights), len(s.Temps))
		}
		pts := make(plotter.XYs, len(s.Heights))
		for k := range s.Heights {
			pts[k] = plotter.XY{X: s.Temps[k], Y: s.Heights[k]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create line for t = %v h: %w", s.T, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("t = %g h", s.T), line)
	}
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// PlotHistory draws the usable energy and the total energy of a run over
// time.
func PlotHistory(path string, steps []model.StepReport) error {
	if len(steps) == 0 {
		return fmt.Errorf("no steps to plot")
	}
	usable := make(plotter.XYs, len(steps))
	total := make(plotter.XYs, len(steps))
	for i, s := range steps {
		usable[i] = plotter.XY{X: s.T, Y: s.UsableEnergy}
		total[i] = plotter.XY{X: s.T, Y: s.TotalEnergy}
	}

	p := plot.New()
	p.Title.Text = "Run " + steps[0].RunID
	p.X.Label.Text = "Time (h)"
	p.Y.Label.Text = "Energy (GJ)"
	p.Add(plotter.NewGrid())

	usableLine, err := plotter.NewLine(usable)
	if err != nil {
		return fmt.Errorf("failed to create usable energy line: %w", err)
	}
	usableLine.Color = color.RGBA{R: 200, A: 255}
	usableLine.Width = vg.Points(1)
	totalLine, err := plotter.NewLine(total)
	if err != nil {
		return fmt.Errorf("failed to create total energy line: %w", err)
	}
	totalLine.Color = color.RGBA{B: 200, A: 255}
	totalLine.Width = vg.Points(1)
	p.Add(usableLine, totalLine)
	p.Legend.Add("usable", usableLine)
	p.Legend.Add("total", totalLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
