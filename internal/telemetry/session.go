package telemetry

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"story-coach/internal/storage"
)

// Pricing is USD per one million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1_000_000*p.InputPerMTok +
		float64(completionTokens)/1_000_000*p.OutputPerMTok
}

// Session collects every record of one user session in memory and writes
// it out once on End.
type Session struct {
	mu      sync.Mutex
	id      string
	started time.Time
	pricing Pricing
	now     func() time.Time

	recorder storage.Recorder
	always   bool
	ended    bool

	apiCalls    []APICallRecord
	evaluations []EvaluationRecord
	cacheEvents []CacheRecord
	errors      []ErrorRecord
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithRecorder persists the session on End. When always is false, only
// sessions that recorded an error are written.
func WithRecorder(r storage.Recorder, always bool) SessionOption {
	return func(s *Session) {
		s.recorder = r
		s.always = always
	}
}

func NewSession(pricing Pricing, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.NewString(),
		pricing: pricing,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) RecordAPICall(rec APICallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if rec.TotalTokens == 0 {
		rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
	}
	s.apiCalls = append(s.apiCalls, rec)
}

func (s *Session) RecordEvaluation(rec EvaluationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	s.evaluations = append(s.evaluations, rec)
}

func (s *Session) RecordCache(rec CacheRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	s.cacheEvents = append(s.cacheEvents, rec)
}

func (s *Session) RecordError(rec ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	s.errors = append(s.errors, rec)
}

// APICalls returns a copy of the recorded API calls.
func (s *Session) APICalls() []APICallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]APICallRecord(nil), s.apiCalls...)
}

func (s *Session) Evaluations() []EvaluationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EvaluationRecord(nil), s.evaluations...)
}

func (s *Session) Stats() storage.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(s.now())
}

func (s *Session) statsLocked(now time.Time) storage.SessionStats {
	st := storage.SessionStats{
		TotalAPICalls:    len(s.apiCalls),
		TotalEvaluations: len(s.evaluations),
		Errors:           len(s.errors),
		DurationSeconds:  now.Sub(s.started).Seconds(),
	}
	for _, c := range s.apiCalls {
		st.TotalPromptTokens += c.PromptTokens
		st.TotalCompletionTokens += c.CompletionTokens
		st.TotalTokens += c.TotalTokens
	}
	st.EstimatedCostUSD = s.pricing.Cost(st.TotalPromptTokens, st.TotalCompletionTokens)

	if len(s.evaluations) > 0 {
		sum := 0
		for _, e := range s.evaluations {
			sum += e.Score
		}
		st.AverageScore = float64(sum) / float64(len(s.evaluations))
	}

	for _, c := range s.cacheEvents {
		switch c.Action {
		case CacheHit:
			st.CacheHits++
		case CacheMiss, CacheExpired:
			st.CacheMisses++
		}
	}
	if lookups := st.CacheHits + st.CacheMisses; lookups > 0 {
		st.CacheHitRate = float64(st.CacheHits) / float64(lookups)
	}
	return st
}

// Snapshot returns the session in its stored form.
func (s *Session) Snapshot() storage.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return storage.Session{
		ID:          s.id,
		StartedAt:   s.started,
		EndedAt:     now,
		APICalls:    append([]APICallRecord(nil), s.apiCalls...),
		Evaluations: append([]EvaluationRecord(nil), s.evaluations...),
		CacheEvents: append([]CacheRecord(nil), s.cacheEvents...),
		Errors:      append([]ErrorRecord(nil), s.errors...),
		Stats:       s.statsLocked(now),
	}
}

// End finalizes the session and hands it to the recorder. Calling End twice
// is a no-op.
func (s *Session) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	persist := s.recorder != nil && (s.always || len(s.errors) > 0)
	s.mu.Unlock()

	snap := s.Snapshot()
	log.Printf("📊 session %s: %d api calls, %d tokens, $%.6f, cache hit rate %.0f%%",
		snap.ID, snap.Stats.TotalAPICalls, snap.Stats.TotalTokens,
		snap.Stats.EstimatedCostUSD, snap.Stats.CacheHitRate*100)
	if !persist {
		return nil
	}
	if err := s.recorder.AppendSession(snap); err != nil {
		return fmt.Errorf("persist session %s: %w", snap.ID, err)
	}
	return nil
}
