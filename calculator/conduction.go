package calculator

// Conduct advances heat conduction through the column formed by the water
// (top to bottom) and the foundation below it. The water surface is held at
// vaporTemp, the deepest foundation row loses groundFlux W/m².
func Conduct(cfg *Config, st State, dt, vaporTemp, groundFlux float64) State {
	nw := len(st.Storage)
	n := nw + len(st.Foundation)
	if nw == 0 || n < 2 {
		return st
	}

	theta := make([]float64, n)
	dx := make([]float64, n)
	water := make([]bool, n)
	for j := 0; j < nw; j++ {
		c := st.Storage[nw-1-j]
		theta[j], dx[j], water[j] = c.T, c.Dh, true
	}
	for k, c := range st.Foundation {
		theta[nw+k], dx[nw+k] = c.T, c.Dh
	}

	last := n - 1
	dxm := make([]float64, last)
	lambda := make([]float64, last)
	for j := 0; j < last; j++ {
		dxm[j] = (dx[j] + dx[j+1]) / 2
		lambda[j] = (dx[j] + dx[j+1]) / (dx[j]/cellConductivity(theta[j], water[j]) + dx[j+1]/cellConductivity(theta[j+1], water[j+1]))
	}
	tlf := make([]float64, n)
	for j := range tlf {
		rho, cp := FoundationDensity, FoundationSpecificHeat
		if water[j] {
			below := theta[j]
			if j+1 < n {
				below = theta[j+1]
			}
			rho, cp = density(theta[j]), specificHeat(below)
		}
		tlf[j] = dt / (rho * cp * 2 * dx[j])
	}

	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	d := make([]float64, n)

	lambda0 := conductivity(theta[0])
	top := lambda0 / (dx[0] / 2)
	c[0] = -tlf[0] * lambda[0] / dxm[0]
	b[0] = 1 + tlf[0]*(lambda[0]/dxm[0]+top)
	d[0] = theta[0]*(1-tlf[0]*(lambda[0]/dxm[0]+top)) + theta[1]*tlf[0]*lambda[0]/dxm[0] + 2*vaporTemp*tlf[0]*top

	for j := 1; j < last; j++ {
		up := lambda[j-1] / dxm[j-1]
		down := lambda[j] / dxm[j]
		a[j] = -tlf[j] * up
		b[j] = 1 + tlf[j]*(down+up)
		c[j] = -tlf[j] * down
		d[j] = theta[j]*(1-tlf[j]*(up+down)) + theta[j+1]*tlf[j]*down + theta[j-1]*tlf[j]*up
	}

	up := lambda[last-1] / dxm[last-1]
	a[last] = -tlf[last] * up
	b[last] = 1 + tlf[last]*up
	d[last] = theta[last]*(1-tlf[last]*up) + theta[last-1]*tlf[last]*up
	if !water[last] {
		d[last] -= groundFlux * dt / (dx[last] * FoundationDensity * FoundationSpecificHeat)
	}

	next := SolveTridiagonal(a, b, c, d)
	next[0] = vaporTemp

	for j := 0; j < nw; j++ {
		cell := &st.Storage[nw-1-j]
		m := cell.Dh * density(cell.T)
		cell.T = next[j]
		cell.Dh = m / density(next[j])
	}
	for k := range st.Foundation {
		st.Foundation[k].T = next[nw+k]
	}
	return st
}

func cellConductivity(t float64, water bool) float64 {
	if water {
		return conductivity(t)
	}
	return FoundationConductivity
}

// SolveTridiagonal solves a tridiagonal system with the Thomas algorithm.
// a is the sub-diagonal (a[0] unused), b the diagonal, c the super-diagonal
// (c[n-1] unused) and d the right-hand side. The inputs are not modified.
func SolveTridiagonal(a, b, c, d []float64) []float64 {
	n := len(d)
	if n == 0 {
		return nil
	}
	bb := make([]float64, n)
	dd := make([]float64, n)
	copy(bb, b)
	copy(dd, d)
	for i := 1; i < n; i++ {
		m := a[i] / bb[i-1]
		bb[i] -= m * c[i-1]
		dd[i] -= m * dd[i-1]
	}
	x := make([]float64, n)
	x[n-1] = dd[n-1] / bb[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = (dd[i] - c[i]*x[i+1]) / bb[i]
	}
	return x
}
