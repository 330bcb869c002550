package advisor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/frankfika/pokersight-gto/server/parse"
	"github.com/frankfika/pokersight-gto/server/vision"
)

// Engine fuses the text classifications and the latest pixel signal into one
// flicker-free UiState. It is the only stateful piece of the core; callers
// must serialize Apply/ApplyPartial/control-event calls (the session loop
// does exactly that). All outputs are value snapshots.
type Engine struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time

	state UiState
	pixel vision.Signal

	waitingStreak        int
	actingStreak         int
	pixelOverrideStreak  int
	lastActingTransition time.Time
	lastEmittedKind      parse.ActionKind
	lastEmittedDisplay   string
}

func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg: cfg,
		log: logger.With().Str("component", "advisor").Logger(),
		now: time.Now,
	}
	e.Reset()
	return e
}

// Reset returns the engine to its session-start state. Pinned fields belong
// to the session, so they are dropped too.
func (e *Engine) Reset() {
	e.state = UiState{Phase: PhaseWaiting, Kind: parse.Waiting, Display: "Waiting"}
	e.pixel = vision.Signal{Confidence: vision.ConfidenceLow}
	e.waitingStreak = 0
	e.actingStreak = 0
	e.pixelOverrideStreak = 0
	e.lastActingTransition = time.Time{}
	// The initial Waiting state counts as emitted, so the first waiting
	// verdict refreshes fields instead of re-announcing it.
	e.lastEmittedKind = parse.Waiting
	e.lastEmittedDisplay = "Waiting"
}

// ObservePixels records the latest per-frame signal. It does not transition
// state by itself; the appear/disappear edges do (see ControlAppeared,
// ControlDisappeared).
func (e *Engine) ObservePixels(sig vision.Signal) {
	e.pixel = sig
}

// ControlAppeared pre-seeds the acting confirmation streak so the very next
// acting-like response lands with less delay.
func (e *Engine) ControlAppeared() {
	if e.actingStreak < 1 {
		e.actingStreak = 1
		e.waitingStreak = 0
	}
}

// ControlDisappeared means the user already acted: any pending advice is
// void, so the engine drops straight back to Waiting. Pinned fields survive.
func (e *Engine) ControlDisappeared() (UiState, bool) {
	changed := e.state.Phase != PhaseWaiting
	e.state.Phase = PhaseWaiting
	e.state.Kind = parse.Waiting
	e.state.Display = "Waiting"
	e.waitingStreak = 0
	e.actingStreak = 0
	e.pixelOverrideStreak = 0
	e.lastEmittedKind = parse.Waiting
	e.lastEmittedDisplay = "Waiting"
	if changed {
		e.log.Debug().Msg("control disappeared, back to waiting")
	}
	return e.state.snapshot(), changed
}

// Snapshot returns the current UiState as a value copy.
func (e *Engine) Snapshot() UiState { return e.state.snapshot() }

// Diag returns the current counters for logging and the API.
func (e *Engine) Diag() Diagnostics {
	return Diagnostics{
		WaitingStreak:       e.waitingStreak,
		ActingStreak:        e.actingStreak,
		PixelOverrideStreak: e.pixelOverrideStreak,
		PixelConfidence:     e.pixel.Confidence,
		PixelDensity:        e.pixel.Density,
	}
}

// ApplyPartial evaluates a growing prefix of the in-flight response. A
// waiting-like early verdict is safe to surface immediately; an acting-like
// one is withheld until the rationale has started arriving, because the
// fuller text can still talk the action down (and the parser lets the
// rationale win).
func (e *Engine) ApplyPartial(c parse.ClassifiedResponse) (UiState, bool) {
	if c.Kind.ActingLike() && !c.RationaleStarted {
		return e.state.snapshot(), false
	}
	return e.Apply(c)
}

// Apply runs one reconciliation cycle against the latest pixel signal and
// returns the (possibly unchanged) snapshot plus whether a transition was
// emitted. It never fails: every input maps to some outcome.
func (e *Engine) Apply(c parse.ClassifiedResponse) (UiState, bool) {
	// Skip never touches anything; Unrecognized has nothing displayable
	// either and is treated the same way.
	if c.Kind == parse.Skip || c.Kind == parse.Unrecognized {
		return e.state.snapshot(), false
	}

	waitingLike := c.Kind.WaitingLike()
	if waitingLike {
		e.waitingStreak++
		e.actingStreak = 0
	} else {
		e.actingStreak++
		e.waitingStreak = 0
	}

	// Exit-from-Acting guard: a lone waiting verdict right after we told
	// the user to act is usually the model lagging a frame behind.
	if e.state.Phase == PhaseActing && waitingLike {
		accept := !e.pixel.PrimaryPresent ||
			e.now().Sub(e.lastActingTransition) > e.cfg.ActingExitWindow ||
			e.waitingStreak >= e.cfg.WaitingConfirmations
		e.pixelOverrideStreak = 0
		if !accept {
			e.refreshFields(c.Fields)
			return e.state.snapshot(), false
		}
		return e.commit(c)
	}

	// Pixel-contradiction guard: text says waiting, pixels show the turn
	// control. Distrust the text, up to a point; a persistently wrong pixel
	// sensor must not deadlock the engine.
	if waitingLike && e.pixel.PrimaryPresent {
		e.pixelOverrideStreak++
		if e.pixelOverrideStreak < e.cfg.PixelEscapeThreshold {
			e.refreshFields(c.Fields)
			return e.state.snapshot(), false
		}
		e.pixelOverrideStreak = 0
		return e.commit(c)
	}
	e.pixelOverrideStreak = 0

	// Entry-into-Acting guard: confirmations scale with pixel confidence.
	if !waitingLike && e.state.Phase != PhaseActing {
		need := e.cfg.ActingConfirmationsLow
		if e.pixel.Confidence == vision.ConfidenceHigh || e.pixel.Confidence == vision.ConfidenceMedium {
			need = e.cfg.ActingConfirmationsHigh
		}
		if e.actingStreak < need {
			e.refreshFields(c.Fields)
			return e.state.snapshot(), false
		}
	}

	return e.commit(c)
}

// commit runs de-duplication and, when the pair is new, installs and emits
// the transition.
func (e *Engine) commit(c parse.ClassifiedResponse) (UiState, bool) {
	duplicate := c.Kind == e.lastEmittedKind &&
		(c.Kind.WaitingLike() || c.Display == e.lastEmittedDisplay)
	if duplicate {
		e.refreshFields(c.Fields)
		return e.state.snapshot(), false
	}

	entering := phaseFor(c.Kind) == PhaseActing && e.state.Phase != PhaseActing

	e.state.Phase = phaseFor(c.Kind)
	e.state.Kind = c.Kind
	e.state.Display = c.Display
	e.refreshFields(c.Fields)
	e.lastEmittedKind = c.Kind
	e.lastEmittedDisplay = c.Display
	if entering {
		e.lastActingTransition = e.now()
	}

	e.log.Debug().
		Str("kind", string(c.Kind)).
		Str("display", c.Display).
		Str("phase", string(e.state.Phase)).
		Msg("transition")
	return e.state.snapshot(), true
}

// refreshFields pins any non-empty incoming fields without clearing what is
// already known.
func (e *Engine) refreshFields(f parse.Fields) {
	e.state.PinnedFields = e.state.PinnedFields.Merge(f)
}
