// Package session runs the live tutoring pipeline: one [Session] per
// connected learner, owning a turn segmenter, a debounce gate over the
// latest tutor utterance, and a per-session image dedup set. The [Manager]
// tracks sessions by UUID.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop/internal/debounce"
	"github.com/studyloop/studyloop/internal/enrich"
	"github.com/studyloop/studyloop/internal/observe"
	"github.com/studyloop/studyloop/internal/transcript"
	"github.com/studyloop/studyloop/internal/visual"
)

// tutorUpdate is the debounced unit: the latest tutor text together with the
// ID of the turn it belongs to. The turn ID travels with the text so that a
// fetch completing after the conversation moved on can be detected and
// dropped.
type tutorUpdate struct {
	turnID string
	text   string
}

// Session is one live tutoring pipeline. Events enter through HandleEvent;
// closed turns accumulate in the turn store and are enriched asynchronously
// with images once the tutor has been quiet for the debounce interval.
//
// Safe for concurrent use.
type Session struct {
	id       string
	enricher *enrich.Enricher
	metrics  *observe.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	gate   *debounce.Gate[tutorUpdate]
	dedup  *enrich.DedupSet

	mu    sync.Mutex
	seg   *transcript.Segmenter
	turns []*transcript.Turn
	seq   uint64
	ended bool
}

// newSession wires a pipeline instance. Callers go through [Manager.Create].
func newSession(parent context.Context, enricher *enrich.Enricher, metrics *observe.Metrics, quiet time.Duration) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:       uuid.NewString(),
		enricher: enricher,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
		dedup:    enrich.NewDedupSet(),
		seg:      transcript.NewSegmenter(),
	}
	s.gate = debounce.NewGate(quiet, s.onQuiet)
	return s
}

// ID returns the session's UUID.
func (s *Session) ID() string {
	return s.id
}

// HandleEvent feeds one speaker-tagged event into the pipeline. Events with
// an empty ID get a generated one; sequence numbers are assigned here so
// callers only supply speaker and text. Events after End are ignored.
func (s *Session) HandleEvent(ev transcript.Event) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.seq++
	ev.Sequence = s.seq
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	if closed := s.seg.Push(ev); closed != nil {
		s.turns = append(s.turns, closed)
		s.metrics.TurnsSegmented.Add(s.ctx, 1)
	}

	var update *tutorUpdate
	if ev.Speaker == transcript.SpeakerTutor {
		if open := s.seg.Open(); open != nil {
			update = &tutorUpdate{turnID: open.ID, text: ev.Text}
		}
	}
	s.mu.Unlock()

	if update != nil {
		s.gate.Set(*update)
	}
}

// onQuiet runs on the debounce timer goroutine once the tutor has been quiet
// for the configured interval. It decides whether the text warrants an
// image, fetches through the shared enricher, and attaches the result to the
// owning turn unless the turn no longer exists or the session has ended.
func (s *Session) onQuiet(u tutorUpdate) {
	// No image provider configured: sessions still run, just unenriched.
	if s.enricher == nil {
		return
	}
	if !visual.NeedsVisual(u.text) {
		return
	}
	query := visual.ComposeQuery(u.text)
	if !s.dedup.TryAdd(query) {
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	images, cached := s.enricher.FetchImages(s.ctx, query)
	if cached {
		s.metrics.ImageSearchCacheHits.Add(s.ctx, 1)
	} else {
		s.metrics.ImageSearchCacheMisses.Add(s.ctx, 1)
	}
	if len(images) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	if turn := s.findTurn(u.turnID); turn != nil {
		turn.Images = append(turn.Images, images...)
	}
	// Turn gone: stale completion, result dropped.
}

// findTurn locates a turn by ID among the open turn and the store.
// Must be called with s.mu held.
func (s *Session) findTurn(id string) *transcript.Turn {
	if open := s.seg.Open(); open != nil && open.ID == id {
		return open
	}
	for _, t := range s.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Turns returns a snapshot of all turns so far, including the currently open
// one. Images attached after the call are not reflected in the copies.
func (s *Session) Turns() []transcript.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]transcript.Turn, 0, len(s.turns)+1)
	for _, t := range s.turns {
		out = append(out, *t)
	}
	if open := s.seg.Open(); open != nil {
		out = append(out, *open)
	}
	return out
}

// End tears the session down: the gate stops without emitting, the session
// context is cancelled so no new upstream calls start, and further events
// are ignored. Idempotent.
func (s *Session) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()

	s.gate.Stop()
	s.cancel()
}

// Manager tracks live sessions by UUID and maintains the active-session
// gauge. Safe for concurrent use.
type Manager struct {
	enricher *enrich.Enricher
	metrics  *observe.Metrics
	quiet    time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. quiet is the debounce interval applied to
// every session's gate.
func NewManager(enricher *enrich.Enricher, metrics *observe.Metrics, quiet time.Duration) *Manager {
	return &Manager{
		enricher: enricher,
		metrics:  metrics,
		quiet:    quiet,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session derived from parent and registers it.
func (m *Manager) Create(parent context.Context) *Session {
	s := newSession(parent, m.enricher, m.metrics, m.quiet)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(parent, 1)
	return s
}

// Get returns the session with the given ID, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// End terminates and removes the session with the given ID. It reports
// whether a session was found.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.End()
	m.metrics.ActiveSessions.Add(context.Background(), -1)
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
