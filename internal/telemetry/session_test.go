package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/storage"
)

type memRecorder struct {
	sessions []storage.Session
	err      error
}

func (m *memRecorder) AppendSession(s storage.Session) error {
	if m.err != nil {
		return m.err
	}
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memRecorder) LoadSessions(time.Time) ([]storage.Session, error) {
	return m.sessions, nil
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestSession_Stats(t *testing.T) {
	s := NewSession(Pricing{InputPerMTok: 0.150, OutputPerMTok: 0.600}, WithClock(fixedClock()))
	s.RecordAPICall(APICallRecord{Agent: "expert_pediatrician", PromptTokens: 1_000_000, CompletionTokens: 500_000})
	s.RecordAPICall(APICallRecord{Agent: "quick_response", PromptTokens: 10, CompletionTokens: 5})
	s.RecordEvaluation(EvaluationRecord{Type: "expert_response", Score: 80})
	s.RecordEvaluation(EvaluationRecord{Type: "expert_response", Score: 60})
	s.RecordCache(CacheRecord{Class: "scenario", Action: CacheHit, Key: "toilet_0"})
	s.RecordCache(CacheRecord{Class: "scenario", Action: CacheMiss, Key: "toilet_1"})
	s.RecordCache(CacheRecord{Class: "scenario", Action: CacheWrite, Key: "toilet_1"})
	s.RecordCache(CacheRecord{Class: "scenario", Action: CacheHit, Key: "toilet_1"})

	st := s.Stats()
	assert.Equal(t, 2, st.TotalAPICalls)
	assert.Equal(t, 1_000_010, st.TotalPromptTokens)
	assert.Equal(t, 500_005, st.TotalCompletionTokens)
	assert.Equal(t, 1_500_015, st.TotalTokens)
	assert.InDelta(t, 0.15+0.30, st.EstimatedCostUSD, 1e-4)
	assert.InDelta(t, 70.0, st.AverageScore, 1e-9)
	assert.Equal(t, 2, st.CacheHits)
	assert.Equal(t, 1, st.CacheMisses)
	assert.InDelta(t, 2.0/3.0, st.CacheHitRate, 1e-9)
}

func TestSession_EndPersistsOnce(t *testing.T) {
	rec := &memRecorder{}
	s := NewSession(Pricing{}, WithClock(fixedClock()), WithRecorder(rec, true))
	s.RecordAPICall(APICallRecord{Agent: "synthesizer", PromptTokens: 3, CompletionTokens: 4})

	require.NoError(t, s.End())
	require.NoError(t, s.End())
	require.Len(t, rec.sessions, 1)
	assert.Equal(t, s.ID(), rec.sessions[0].ID)
	assert.Equal(t, 7, rec.sessions[0].Stats.TotalTokens)
}

func TestSession_EndOnlyOnErrorsWhenNotAlways(t *testing.T) {
	rec := &memRecorder{}
	quiet := NewSession(Pricing{}, WithRecorder(rec, false))
	require.NoError(t, quiet.End())
	assert.Empty(t, rec.sessions)

	noisy := NewSession(Pricing{}, WithRecorder(rec, false))
	noisy.RecordError(ErrorRecord{Source: "experts", Message: "stream failed"})
	require.NoError(t, noisy.End())
	assert.Len(t, rec.sessions, 1)
}

func TestSession_EndWrapsRecorderError(t *testing.T) {
	s := NewSession(Pricing{}, WithRecorder(&memRecorder{err: errors.New("disk full")}, true))
	err := s.End()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, Nop{}, OrNop(nil))
	s := NewSession(Pricing{})
	assert.Same(t, s, OrNop(s))
}
