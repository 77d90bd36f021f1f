package store

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/interp"

	"freettes/calculator"
)

// ProfileStep is the height resolution of written profiles, m.
const ProfileStep = 0.05

// Resample evaluates the temperature of g every step metres from the floor up
// to top. Below the lowest cell centre the two lowest cells are extrapolated
// linearly, above the highest the top temperature is held, and in between a
// natural cubic spline through the cell centres is used.
func Resample(g calculator.Grid, top, step float64) (heights, temps []float64, err error) {
	if len(g) == 0 {
		return nil, nil, fmt.Errorf("empty grid")
	}
	xs, ys := g.Positions(), g.Temperatures()

	var p interp.Predictor
	switch len(g) {
	case 1:
	case 2:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, nil, fmt.Errorf("failed to fit profile: %w", err)
		}
		p = &pl
	default:
		var nc interp.NaturalCubic
		if err := nc.Fit(xs, ys); err != nil {
			return nil, nil, fmt.Errorf("failed to fit profile: %w", err)
		}
		p = &nc
	}

	first, last := xs[0], xs[len(xs)-1]
	grad := 0.0
	if len(g) > 1 {
		grad = (ys[1] - ys[0]) / (xs[1] - xs[0])
	}
	n := int(math.Floor(top/step+1e-9)) + 1
	heights = make([]float64, n)
	temps = make([]float64, n)
	for k := range heights {
		h := float64(k) * step
		heights[k] = h
		switch {
		case h < first:
			temps[k] = ys[0] + grad*(h-first)
		case h > last || p == nil:
			temps[k] = ys[len(ys)-1]
		default:
			temps[k] = p.Predict(h)
		}
	}
	return heights, temps, nil
}

// WriteProfile writes the resampled profile at elapsed time t (h) as
// "h;T;" lines.
func (fs *FileStore) WriteProfile(t float64, g calculator.Grid) error {
	heights, temps, err := Resample(g, fs.height, ProfileStep)
	if err != nil {
		return fmt.Errorf("profile at t = %v h: %w", t, err)
	}
	name := filepath.Join(fs.dir, profileDir, "temp_profil_"+hours(t)+".dat")
	return writeLines(name, len(heights), func(w *bufio.Writer, i int) {
		fmt.Fprintf(w, "%.2f;%.5f;\n", heights[i], temps[i])
	})
}

// WriteSnapshot writes the raw cell centres and temperatures at elapsed time
// t (h) as "pos;T;" lines.
func (fs *FileStore) WriteSnapshot(t float64, g calculator.Grid) error {
	name := filepath.Join(fs.dir, snapshotDir, "sz"+hours(t)+".dat")
	return writeLines(name, len(g), func(w *bufio.Writer, i int) {
		fmt.Fprintf(w, "%f;%f;\n", g[i].Pos, g[i].T)
	})
}

func hours(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func writeLines(path string, n int, line func(w *bufio.Writer, i int)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		line(w, i)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
