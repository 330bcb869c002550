package vision

// Confidence grades how much the detector trusts its verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Frame is a decoded RGBA pixel buffer. Pix holds 4 bytes per pixel in
// row-major order; len(Pix) must be at least Width*Height*4.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

func (f Frame) valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) >= f.Width*f.Height*4
}

func (f Frame) at(x, y int) (r, g, b byte) {
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Signal is the per-frame verdict about the turn-indicating controls.
// Density is diagnostic only.
type Signal struct {
	PrimaryPresent   bool
	SecondaryPresent bool
	Density          float64
	Confidence       Confidence
}

func grade(primary, secondary bool) Confidence {
	switch {
	case primary && secondary:
		return ConfidenceHigh
	case primary:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
