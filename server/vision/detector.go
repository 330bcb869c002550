package vision

// The detector only ever looks at the lower band of the frame, where the
// provider renders its action controls: the primary (turn-indicating)
// control lives in the left half of that band, the corroborating secondary
// control in the right half. Sampling the full frame would pick up card
// back-markings and decorative icons.
//
// Thresholds are tunable constants, not physical facts; the defaults were
// picked against the provider's standard table skin.
type Thresholds struct {
	// BandFrac is the fraction of the frame height the lower band occupies.
	BandFrac float64
	// SampleStep is the pixel stride used when sampling the band.
	SampleStep int
	// PrimaryDensity is the minimum fraction of primary-colored samples in
	// the left sub-band.
	PrimaryDensity float64
	// LocalDensity is the (lower) per-grid-cell bar the cluster gate uses.
	LocalDensity float64
	// SecondaryDensity is the bar for the right sub-band.
	SecondaryDensity float64
	// GridCols, GridRows partition the primary sub-band for the cluster gate.
	GridCols, GridRows int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		BandFrac:         0.25,
		SampleStep:       2,
		PrimaryDensity:   0.06,
		LocalDensity:     0.03,
		SecondaryDensity: 0.04,
		GridCols:         8,
		GridRows:         4,
	}
}

// Detect classifies one frame with the default thresholds. It is pure and
// never fails: degenerate frames yield the absent/low signal.
func Detect(f Frame) Signal {
	return DetectWith(f, DefaultThresholds())
}

func DetectWith(f Frame, th Thresholds) Signal {
	if !f.valid() || th.SampleStep <= 0 || th.GridCols <= 0 || th.GridRows <= 0 {
		return Signal{Confidence: ConfidenceLow}
	}

	bandTop := f.Height - int(float64(f.Height)*th.BandFrac)
	if bandTop < 0 {
		bandTop = 0
	}
	bandH := f.Height - bandTop
	mid := f.Width / 2
	if bandH <= 0 || mid <= 0 {
		return Signal{Confidence: ConfidenceLow}
	}

	cellW := float64(mid) / float64(th.GridCols)
	cellH := float64(bandH) / float64(th.GridRows)
	cellHits := make([]int, th.GridCols*th.GridRows)
	cellSamples := make([]int, th.GridCols*th.GridRows)

	var primaryHits, primarySamples int
	var secondaryHits, secondarySamples int

	for y := bandTop; y < f.Height; y += th.SampleStep {
		for x := 0; x < f.Width; x += th.SampleStep {
			r, g, b := f.at(x, y)
			if x < mid {
				primarySamples++
				col := int(float64(x) / cellW)
				row := int(float64(y-bandTop) / cellH)
				if col >= th.GridCols {
					col = th.GridCols - 1
				}
				if row >= th.GridRows {
					row = th.GridRows - 1
				}
				cellSamples[row*th.GridCols+col]++
				if primaryColored(r, g, b) {
					primaryHits++
					cellHits[row*th.GridCols+col]++
				}
			} else {
				secondarySamples++
				if secondaryColored(r, g, b) {
					secondaryHits++
				}
			}
		}
	}

	density := 0.0
	if primarySamples > 0 {
		density = float64(primaryHits) / float64(primarySamples)
	}
	primary := density > th.PrimaryDensity &&
		hasCompactCluster(cellHits, cellSamples, th)

	secondary := false
	if secondarySamples > 0 {
		secondary = float64(secondaryHits)/float64(secondarySamples) > th.SecondaryDensity
	}

	return Signal{
		PrimaryPresent:   primary,
		SecondaryPresent: secondary,
		Density:          density,
		Confidence:       grade(primary, secondary),
	}
}

// hasCompactCluster requires one contiguous 2x2 block of grid cells that
// each clear the local density bar. The overall-density gate alone lets a
// thin stripe or a lone suit glyph through; a real button is spatially
// compact.
func hasCompactCluster(hits, samples []int, th Thresholds) bool {
	hot := func(row, col int) bool {
		i := row*th.GridCols + col
		if samples[i] == 0 {
			return false
		}
		return float64(hits[i])/float64(samples[i]) >= th.LocalDensity
	}
	for row := 0; row+1 < th.GridRows; row++ {
		for col := 0; col+1 < th.GridCols; col++ {
			if hot(row, col) && hot(row, col+1) && hot(row+1, col) && hot(row+1, col+1) {
				return true
			}
		}
	}
	return false
}

// primaryColored matches the saturated red of the turn-indicating control.
func primaryColored(r, g, b byte) bool {
	return r >= 180 && g <= 100 && b <= 100
}

// secondaryColored matches the green of the corroborating control.
func secondaryColored(r, g, b byte) bool {
	return g >= 160 && r <= 110 && b <= 110
}
