package advisor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/frankfika/pokersight-gto/server/parse"
	"github.com/frankfika/pokersight-gto/server/vision"
)

// testEngine returns an engine with a controllable clock.
func testEngine(t *testing.T) (*Engine, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	e.now = func() time.Time { return now }
	return e, &now
}

func pixels(primary, secondary bool) vision.Signal {
	var conf vision.Confidence
	switch {
	case primary && secondary:
		conf = vision.ConfidenceHigh
	case primary:
		conf = vision.ConfidenceMedium
	default:
		conf = vision.ConfidenceLow
	}
	return vision.Signal{PrimaryPresent: primary, SecondaryPresent: secondary, Confidence: conf}
}

func raise120() parse.ClassifiedResponse {
	return parse.ClassifiedResponse{
		Kind:             parse.Raise,
		Display:          "Raise 120",
		Fields:           parse.Fields{parse.FieldPot: "80"},
		RationaleStarted: true,
	}
}

func waiting() parse.ClassifiedResponse {
	return parse.ClassifiedResponse{Kind: parse.Waiting, Display: "Waiting"}
}

func TestRoundTripOneCallWithHighConfidence(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))

	st, changed := e.Apply(raise120())
	require.True(t, changed)
	require.Equal(t, PhaseActing, st.Phase)
	require.Equal(t, parse.Raise, st.Kind)
	require.Equal(t, "Raise 120", st.Display)
	require.Equal(t, "80", st.PinnedFields.Get(parse.FieldPot))
}

func TestDuplicateEmitsOnceRefreshesTwice(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))

	_, changed := e.Apply(raise120())
	require.True(t, changed)

	second := raise120()
	second.Fields = parse.Fields{parse.FieldBoard: "Kh 7c 2d"}
	st, changed := e.Apply(second)
	require.False(t, changed, "identical pair must not re-emit")
	require.Equal(t, "Kh 7c 2d", st.PinnedFields.Get(parse.FieldBoard))
	require.Equal(t, "80", st.PinnedFields.Get(parse.FieldPot), "old fields stay pinned")
}

func TestConfirmationScalesWithConfidence(t *testing.T) {
	// High/Medium: one acting-like response is enough.
	for _, sig := range []vision.Signal{pixels(true, true), pixels(true, false)} {
		e, _ := testEngine(t)
		e.ObservePixels(sig)
		_, changed := e.Apply(raise120())
		require.True(t, changed, "confidence %s should need one confirmation", sig.Confidence)
	}

	// Low: exactly two.
	e, _ := testEngine(t)
	e.ObservePixels(pixels(false, false))
	st, changed := e.Apply(raise120())
	require.False(t, changed, "one response below the low-confidence bar")
	require.Equal(t, PhaseWaiting, st.Phase)
	st, changed = e.Apply(raise120())
	require.True(t, changed)
	require.Equal(t, PhaseActing, st.Phase)
}

func TestAntiFlickerWindow(t *testing.T) {
	e, now := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, changed := e.Apply(raise120())
	require.True(t, changed)

	// Inside the 3s window, pixel control still present: one waiting
	// verdict must not exit Acting, a second consecutive one must.
	*now = now.Add(1 * time.Second)
	st, changed := e.Apply(waiting())
	require.False(t, changed)
	require.Equal(t, PhaseActing, st.Phase)

	st, changed = e.Apply(waiting())
	require.True(t, changed)
	require.Equal(t, PhaseWaiting, st.Phase)
}

func TestExitActingImmediatelyWhenPixelGone(t *testing.T) {
	e, now := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())

	*now = now.Add(500 * time.Millisecond)
	e.ObservePixels(pixels(false, false))
	st, changed := e.Apply(waiting())
	require.True(t, changed, "absent pixel control lets a single waiting verdict through")
	require.Equal(t, PhaseWaiting, st.Phase)
}

func TestExitActingAfterWindowExpires(t *testing.T) {
	e, now := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())

	*now = now.Add(4 * time.Second)
	st, changed := e.Apply(waiting())
	require.True(t, changed, "expired window lets a single waiting verdict through")
	require.Equal(t, PhaseWaiting, st.Phase)
}

func TestPinnedFieldsSurviveWaiting(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())

	e.ObservePixels(pixels(false, false))
	_, _ = e.Apply(waiting())
	_, _ = e.Apply(waiting())

	st := e.Snapshot()
	require.Equal(t, PhaseWaiting, st.Phase)
	require.Equal(t, "80", st.PinnedFields.Get(parse.FieldPot),
		"waiting transition must not blank pinned fields")
}

func TestPixelContradictionRejectsThenEscapes(t *testing.T) {
	e, _ := testEngine(t)

	// Get to Ready so the eventual Waiting acceptance is observable.
	ready := parse.ClassifiedResponse{Kind: parse.Ready, Display: "Ready"}
	_, changed := e.Apply(ready)
	require.True(t, changed)
	require.Equal(t, PhaseReady, e.Snapshot().Phase)

	// Pixel control becomes visible while the text keeps saying waiting:
	// four rejections, acceptance on the fifth.
	e.ObservePixels(pixels(true, true))
	for i := 0; i < 4; i++ {
		st, changed := e.Apply(waiting())
		require.False(t, changed, "cycle %d must be rejected", i+1)
		require.Equal(t, PhaseReady, st.Phase)
	}
	st, changed := e.Apply(waiting())
	require.True(t, changed, "fifth consecutive waiting verdict escapes the deadlock")
	require.Equal(t, PhaseWaiting, st.Phase)
	require.Zero(t, e.Diag().PixelOverrideStreak)
}

func TestPixelOverrideStreakResetsOnOtherCycles(t *testing.T) {
	e, _ := testEngine(t)
	_, _ = e.Apply(parse.ClassifiedResponse{Kind: parse.Ready, Display: "Ready"})

	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(waiting())
	_, _ = e.Apply(waiting())
	require.Equal(t, 2, e.Diag().PixelOverrideStreak)

	// An acting-like cycle does not hit the contradiction: streak resets.
	_, _ = e.Apply(raise120())
	require.Zero(t, e.Diag().PixelOverrideStreak)
}

func TestSkipIsolation(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())
	before := e.Snapshot()

	skip := parse.ClassifiedResponse{
		Kind:    parse.Skip,
		Display: "Skip",
		Fields:  parse.Fields{parse.FieldPot: "999"},
	}
	st, changed := e.Apply(skip)
	require.False(t, changed)
	require.Equal(t, before, st, "skip must leave UiState untouched, fields included")
}

func TestUnrecognizedLeavesStateAlone(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())
	before := e.Snapshot()

	st, changed := e.Apply(parse.ClassifiedResponse{Kind: parse.Unrecognized})
	require.False(t, changed)
	require.Equal(t, before, st)
}

func TestControlAppearedPreseedsStreak(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(false, false)) // Low: would normally need two

	e.ControlAppeared()
	_, changed := e.Apply(raise120())
	require.True(t, changed, "pre-seeded streak shortens the confirmation delay")
}

func TestControlDisappearedForcesWaiting(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())

	e.ObservePixels(pixels(false, false))
	st, changed := e.ControlDisappeared()
	require.True(t, changed)
	require.Equal(t, PhaseWaiting, st.Phase)
	require.Equal(t, "80", st.PinnedFields.Get(parse.FieldPot), "pinned fields survive")

	_, changed = e.ControlDisappeared()
	require.False(t, changed, "already waiting")
}

func TestPartialActingWithheldUntilRationale(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))

	early := raise120()
	early.RationaleStarted = false
	st, changed := e.ApplyPartial(early)
	require.False(t, changed)
	require.Equal(t, PhaseWaiting, st.Phase)

	late := raise120()
	st, changed = e.ApplyPartial(late)
	require.True(t, changed)
	require.Equal(t, PhaseActing, st.Phase)
}

func TestPartialWaitingSurfacesImmediately(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(false, false))

	ready := parse.ClassifiedResponse{Kind: parse.Ready, Display: "Ready"}
	st, changed := e.ApplyPartial(ready)
	require.True(t, changed)
	require.Equal(t, PhaseReady, st.Phase)
}

func TestResetClearsEverything(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	_, _ = e.Apply(raise120())

	e.Reset()
	st := e.Snapshot()
	require.Equal(t, PhaseWaiting, st.Phase)
	require.Empty(t, st.PinnedFields)
	require.Zero(t, e.Diag().ActingStreak)
	require.Zero(t, e.Diag().WaitingStreak)
}

func TestSnapshotIsImmutable(t *testing.T) {
	e, _ := testEngine(t)
	e.ObservePixels(pixels(true, true))
	st, _ := e.Apply(raise120())

	st.PinnedFields["pot"] = "tampered"
	require.Equal(t, "80", e.Snapshot().PinnedFields.Get(parse.FieldPot))
}
