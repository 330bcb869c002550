package advisor

import (
	"time"

	"github.com/frankfika/pokersight-gto/server/parse"
	"github.com/frankfika/pokersight-gto/server/vision"
)

// Phase is the coarse user-visible state.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseReady   Phase = "ready"
	PhaseActing  Phase = "acting"
)

// UiState is the single externally visible decision. Kind is the Acting
// sub-kind (raise/call/check/fold/allin) and mirrors the classification for
// the other phases. PinnedFields are last-known-good attributes: a Waiting
// transition never clears them, new non-empty fields replace them key by key.
type UiState struct {
	Phase        Phase            `json:"phase"`
	Kind         parse.ActionKind `json:"kind"`
	Display      string           `json:"display"`
	PinnedFields parse.Fields     `json:"pinned_fields,omitempty"`
}

// snapshot returns a value copy safe to hand out.
func (s UiState) snapshot() UiState {
	s.PinnedFields = s.PinnedFields.Clone()
	return s
}

func phaseFor(kind parse.ActionKind) Phase {
	switch {
	case kind == parse.Ready:
		return PhaseReady
	case kind.ActingLike():
		return PhaseActing
	default:
		return PhaseWaiting
	}
}

// Diagnostics is a read-only view of the engine's counters, for logging and
// the HTTP API. It carries no contract beyond the moment of emission.
type Diagnostics struct {
	WaitingStreak       int               `json:"waiting_streak"`
	ActingStreak        int               `json:"acting_streak"`
	PixelOverrideStreak int               `json:"pixel_override_streak"`
	PixelConfidence     vision.Confidence `json:"pixel_confidence"`
	PixelDensity        float64           `json:"pixel_density"`
}

// Config holds the reconciliation thresholds. They are tunable, not physical
// constants; the defaults are the ones the overlay ships with.
type Config struct {
	// ActingExitWindow is how long after entering Acting a lone waiting
	// verdict is distrusted while the pixel control is still visible.
	ActingExitWindow time.Duration
	// WaitingConfirmations is the streak that overrides the exit window.
	WaitingConfirmations int
	// ActingConfirmations maps pixel confidence to the streak required to
	// enter Acting: one when the pixels corroborate, two when they do not.
	ActingConfirmationsHigh int
	ActingConfirmationsLow  int
	// PixelEscapeThreshold is how many consecutive text-says-waiting /
	// pixel-says-present cycles it takes before the engine stops trusting
	// the pixel sensor.
	PixelEscapeThreshold int
}

func DefaultConfig() Config {
	return Config{
		ActingExitWindow:        3 * time.Second,
		WaitingConfirmations:    2,
		ActingConfirmationsHigh: 1,
		ActingConfirmationsLow:  2,
		PixelEscapeThreshold:    5,
	}
}
