package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frankfika/pokersight-gto/server/advisor"
	"github.com/frankfika/pokersight-gto/server/parse"
	"github.com/frankfika/pokersight-gto/server/vision"
)

// Update is one published state change.
type Update struct {
	SessionID string              `json:"session_id"`
	State     advisor.UiState     `json:"state"`
	Diag      advisor.Diagnostics `json:"diag"`
	At        time.Time           `json:"at"`
}

// Recorder persists emitted transitions. Implementations must not block for
// long; the session loop calls them inline.
type Recorder interface {
	RecordTransition(ctx context.Context, u Update) error
}

type eventKind int

const (
	evFrame eventKind = iota
	evChunk
	evComplete
	evReset
)

type event struct {
	kind  eventKind
	frame vision.Frame
	text  string
}

// Session owns one advisor engine and serializes every input to it through
// a single queue drained by Run. Frames, response chunks and resets may be
// offered from any goroutine; handlers run one at a time to completion, so
// the engine itself needs no locking.
type Session struct {
	ID string

	log        zerolog.Logger
	engine     *advisor.Engine
	thresholds vision.Thresholds
	recorder   Recorder

	events chan event

	mu          sync.RWMutex
	subscribers map[int]chan Update
	nextSub     int
	last        Update

	partial     *parse.ClassifiedResponse
	prevPrimary bool
}

// New creates a stopped session; call Run to start draining events.
// recorder may be nil.
func New(cfg advisor.Config, th vision.Thresholds, recorder Recorder, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	log := logger.With().Str("component", "session").Str("session_id", id).Logger()
	s := &Session{
		ID:          id,
		log:         log,
		engine:      advisor.NewEngine(cfg, log),
		thresholds:  th,
		recorder:    recorder,
		events:      make(chan event, 64),
		subscribers: make(map[int]chan Update),
	}
	s.last = Update{SessionID: id, State: s.engine.Snapshot(), At: time.Now()}
	return s
}

// OfferFrame enqueues a frame tick. Frames are disposable: when the queue
// is full the frame is dropped rather than stalling the capture side.
func (s *Session) OfferFrame(f vision.Frame) bool {
	select {
	case s.events <- event{kind: evFrame, frame: f}:
		return true
	default:
		framesDropped.Inc()
		return false
	}
}

// OfferChunk enqueues a growing prefix of the in-flight response.
func (s *Session) OfferChunk(text string) {
	s.events <- event{kind: evChunk, text: text}
}

// Complete enqueues the final text of the current response.
func (s *Session) Complete(text string) {
	s.events <- event{kind: evComplete, text: text}
}

// Reset enqueues a full engine reset (session restart).
func (s *Session) Reset() {
	s.events <- event{kind: evReset}
}

// State returns the most recently published update.
func (s *Session) State() Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Subscribe registers a listener for published updates. Slow listeners miss
// updates instead of blocking the loop. The returned cancel must be called
// exactly once.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Run drains the event queue until ctx is done.
func (s *Session) Run(ctx context.Context) {
	s.log.Info().Msg("session loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("session loop stopped")
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evFrame:
		s.handleFrame(ctx, ev.frame)
	case evChunk:
		s.handleChunk(ctx, ev.text)
	case evComplete:
		s.handleComplete(ctx, ev.text)
	case evReset:
		s.engine.Reset()
		s.partial = nil
		s.prevPrimary = false
		s.publish(ctx, s.engine.Snapshot())
	}
}

func (s *Session) handleFrame(ctx context.Context, f vision.Frame) {
	framesTotal.Inc()
	sig := vision.DetectWith(f, s.thresholds)

	appeared := sig.PrimaryPresent && !s.prevPrimary
	disappeared := !sig.PrimaryPresent && s.prevPrimary
	s.prevPrimary = sig.PrimaryPresent

	s.engine.ObservePixels(sig)
	if appeared {
		s.engine.ControlAppeared()
	}
	if disappeared {
		if st, changed := s.engine.ControlDisappeared(); changed {
			s.publish(ctx, st)
		}
	}
}

func (s *Session) handleChunk(ctx context.Context, text string) {
	c := parse.Refine(s.partial, text)
	s.partial = &c
	if st, changed := s.engine.ApplyPartial(c); changed {
		s.publish(ctx, st)
	}
}

func (s *Session) handleComplete(ctx context.Context, text string) {
	responsesTotal.Inc()
	c := parse.Refine(s.partial, text)
	s.partial = nil
	if st, changed := s.engine.Apply(c); changed {
		s.publish(ctx, st)
	}
}

func (s *Session) publish(ctx context.Context, st advisor.UiState) {
	u := Update{
		SessionID: s.ID,
		State:     st,
		Diag:      s.engine.Diag(),
		At:        time.Now(),
	}
	transitionsTotal.WithLabelValues(string(st.Phase)).Inc()

	s.mu.Lock()
	s.last = u
	for _, ch := range s.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.RecordTransition(ctx, u); err != nil {
			s.log.Error().Err(err).Msg("record transition")
		}
	}

	s.log.Info().
		Str("phase", string(st.Phase)).
		Str("display", st.Display).
		Msg("state published")
}
