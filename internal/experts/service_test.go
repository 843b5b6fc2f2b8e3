package experts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/llm"
	"story-coach/internal/llm/llmtest"
	"story-coach/internal/persona"
	"story-coach/internal/quality"
	"story-coach/internal/telemetry"
)

type fakeValidator struct {
	mu      sync.Mutex
	verdict quality.Verdict
	calls   []string
}

func (f *fakeValidator) Validate(_ context.Context, contentType string, content any, _ quality.Criteria) quality.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, contentType)
	return f.verdict
}

// runeCounter counts one token per rune.
type runeCounter struct{ err error }

func (c runeCounter) Count(text string) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return utf8.RuneCountInString(text), nil
}

func newService(t *testing.T, client llm.Client, counter runeCounter) (*Service, *telemetry.Session, *fakeValidator) {
	t.Helper()
	session := telemetry.NewSession(telemetry.Pricing{})
	v := &fakeValidator{verdict: quality.Verdict{IsValid: true, Score: 85, Issues: []string{}, Suggestions: []string{}}}
	svc := NewService(client, persona.Default(), v, counter, session, Options{MaxTokens: 100})
	return svc, session, v
}

// personaChunks streams "<persona id>:1" and "<persona id>:2" for each expert.
func personaChunks(req llm.Request) (llm.Stream, error) {
	id := "unknown"
	for _, p := range persona.Default().List() {
		if llmtest.SystemPrompt(req) == p.Instruction {
			id = string(p.ID)
		}
	}
	return llm.NewSliceStream([]llm.Delta{{Text: id + ":1"}, {Text: ""}, {Text: id + ":2"}}, nil), nil
}

func TestSequentialExpertsStream_Ordering(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: personaChunks}
	svc, session, v := newService(t, fake, runeCounter{})

	var got []string
	for c := range svc.SequentialExpertsStream(context.Background(), "質問", "", persona.Friendly) {
		got = append(got, c.PersonaID+"|"+c.Chunk)
	}

	var want []string
	for _, id := range persona.Default().IDs() {
		s := string(id)
		want = append(want, s+"|"+StartMarker, s+"|"+s+":1", s+"|"+s+":2", s+"|"+EndMarker)
	}
	assert.Equal(t, want, got)

	calls := session.APICalls()
	require.Len(t, calls, 4)
	for i, id := range persona.Default().IDs() {
		assert.Equal(t, "sequential_"+string(id), calls[i].Agent)
		assert.True(t, calls[i].Streaming)
		assert.InDelta(t, 0.8, calls[i].Temperature, 1e-6)
	}
	assert.Len(t, v.calls, 4)
	assert.Len(t, session.Evaluations(), 4)

	for _, req := range fake.Requests() {
		assert.Equal(t, 200, req.MaxTokens)
		assert.Contains(t, llmtest.UserPrompt(req), noContext)
		assert.Contains(t, llmtest.UserPrompt(req), "【回答形式】")
	}
}

func TestSequentialExpertsStream_ErrorStops(t *testing.T) {
	n := 0
	fake := &llmtest.Fake{StreamFunc: func(req llm.Request) (llm.Stream, error) {
		n++
		if n == 2 {
			return nil, errors.New("rate limited")
		}
		return personaChunks(req)
	}}
	svc, session, _ := newService(t, fake, runeCounter{})

	var got []ExpertChunk
	for c := range svc.SequentialExpertsStream(context.Background(), "質問", "背景", persona.Standard) {
		got = append(got, c)
	}

	require.Len(t, got, 6)
	assert.Equal(t, EndMarker, got[3].Chunk)
	assert.Equal(t, StartMarker, got[4].Chunk)
	assert.Equal(t, errorChunk, got[5])
	assert.Len(t, session.Snapshot().Errors, 1)
}

func TestSingleExpertStream_EstimatesTokensWithoutUsage(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("こんにちは", "。", "がんばりましょう")}
	svc, session, _ := newService(t, fake, runeCounter{})

	var text strings.Builder
	for chunk := range svc.SingleExpertStream(context.Background(), persona.Pediatrician, "夜泣きが続きます", "3歳", persona.Friendly) {
		text.WriteString(chunk)
	}
	assert.Equal(t, "こんにちは。がんばりましょう", text.String())

	req := fake.Requests()[0]
	system, user := llmtest.SystemPrompt(req), llmtest.UserPrompt(req)
	calls := session.APICalls()
	require.Len(t, calls, 1)
	rec := calls[0]
	assert.Equal(t, "expert_stream_pediatrician", rec.Agent)
	assert.True(t, rec.Estimated)
	assert.Equal(t, utf8.RuneCountInString(user)+utf8.RuneCountInString(system)+2*3+3, rec.PromptTokens)
	assert.Equal(t, utf8.RuneCountInString(text.String()), rec.CompletionTokens)
	assert.Equal(t, rec.PromptTokens+rec.CompletionTokens, rec.TotalTokens)

	evals := session.Evaluations()
	require.Len(t, evals, 1)
	assert.Equal(t, "expert_quality_pediatrician", evals[0].Type)
	assert.Equal(t, 85, evals[0].Score)
}

func TestSingleExpertStream_CounterFailureFallsBack(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("abcdefgh")}
	svc, session, _ := newService(t, fake, runeCounter{err: errors.New("no encoding")})

	for range svc.SingleExpertStream(context.Background(), persona.ClinicalPsychologist, "q", "", persona.Standard) {
	}

	user := llmtest.UserPrompt(fake.Requests()[0])
	rec := session.APICalls()[0]
	assert.Equal(t, utf8.RuneCountInString(user)/4, rec.PromptTokens)
	assert.Equal(t, 2, rec.CompletionTokens)
	assert.True(t, rec.Estimated)
}

func TestSingleExpertStream_UsesReportedUsage(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: func(llm.Request) (llm.Stream, error) {
		return llm.NewSliceStream([]llm.Delta{
			{Text: "answer"},
			{Usage: &llm.Usage{PromptTokens: 120, CompletionTokens: 30}},
		}, nil), nil
	}}
	svc, session, _ := newService(t, fake, runeCounter{})

	for range svc.SingleExpertStream(context.Background(), persona.FamilySupportSpecialist, "q", "", persona.Friendly) {
	}

	rec := session.APICalls()[0]
	assert.False(t, rec.Estimated)
	assert.Equal(t, 120, rec.PromptTokens)
	assert.Equal(t, 30, rec.CompletionTokens)
	assert.Equal(t, 150, rec.TotalTokens)
}

func TestSingleExpertStream_UnknownPersona(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("x")}
	svc, session, _ := newService(t, fake, runeCounter{})

	var got []string
	for c := range svc.SingleExpertStream(context.Background(), persona.ID("astrologer"), "q", "", persona.Friendly) {
		got = append(got, c)
	}
	assert.Equal(t, []string{msgUnknownPersona}, got)
	assert.Empty(t, fake.Requests())
	assert.Empty(t, session.APICalls())
}

func TestSingleExpertStream_OpenErrorYieldsDiagnostic(t *testing.T) {
	fake := &llmtest.Fake{}
	svc, session, v := newService(t, fake, runeCounter{})

	var got []string
	for c := range svc.SingleExpertStream(context.Background(), persona.Pediatrician, "q", "", persona.Friendly) {
		got = append(got, c)
	}
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "[DEBUG] エラーが発生しました")
	assert.Contains(t, got[0], llmtest.ErrUnavailable.Error())

	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].Error)
	assert.Empty(t, v.calls)
}

func TestSingleExpertStream_MidStreamError(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: func(llm.Request) (llm.Stream, error) {
		return llm.NewSliceStream([]llm.Delta{{Text: "part"}}, errors.New("connection reset")), nil
	}}
	svc, session, v := newService(t, fake, runeCounter{})

	var got []string
	for c := range svc.SingleExpertStream(context.Background(), persona.Pediatrician, "q", "", persona.Friendly) {
		got = append(got, c)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "part", got[0])
	assert.Contains(t, got[1], "connection reset")
	assert.Equal(t, "connection reset", session.APICalls()[0].Error)
	assert.Len(t, v.calls, 1)
}

func TestSingleExpertStream_EarlyStopClosesStream(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("a", "b", "c")}
	svc, session, _ := newService(t, fake, runeCounter{})

	for c := range svc.SingleExpertStream(context.Background(), persona.Pediatrician, "q", "", persona.Friendly) {
		if c == "a" {
			break
		}
	}

	streams := fake.Streams()
	require.Len(t, streams, 1)
	assert.True(t, streams[0].Closed())
	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].CompletionTokens)
}

func TestQuickResponseStream_NotEvaluated(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("quick")}
	svc, session, v := newService(t, fake, runeCounter{})

	var got []string
	for c := range svc.QuickResponseStream(context.Background(), "q", "", persona.Standard) {
		got = append(got, c)
	}
	assert.Equal(t, []string{"quick"}, got)
	assert.Equal(t, "quick_response", session.APICalls()[0].Agent)
	assert.InDelta(t, 0.7, session.APICalls()[0].Temperature, 1e-6)
	assert.Empty(t, v.calls)
	assert.Equal(t, persona.QuickInstruction(persona.Standard), llmtest.SystemPrompt(fake.Requests()[0]))
}

func TestComprehensiveResponseStream(t *testing.T) {
	fake := &llmtest.Fake{
		GenerateFunc: func(req llm.Request) (llm.Response, error) {
			for _, p := range persona.Default().List() {
				if llmtest.SystemPrompt(req) == p.Instruction {
					return llm.Response{Content: "opinion of " + string(p.ID)}, nil
				}
			}
			return llm.Response{}, errors.New("unexpected prompt")
		},
		StreamFunc: llmtest.Chunks("merged", " answer"),
	}
	svc, session, _ := newService(t, fake, runeCounter{})

	var got strings.Builder
	for c := range svc.ComprehensiveResponseStream(context.Background(), "q", "", persona.Friendly) {
		got.WriteString(c)
	}
	assert.Equal(t, "merged answer", got.String())

	reqs := fake.Requests()
	require.Len(t, reqs, 5)
	synthesis := reqs[4]
	assert.Equal(t, persona.SynthesizerInstruction, llmtest.SystemPrompt(synthesis))
	assert.Equal(t, 400, synthesis.MaxTokens)
	for _, p := range persona.Default().List() {
		assert.Contains(t, llmtest.UserPrompt(synthesis), "◆ "+p.Icon+" "+p.Name+"の見解\nopinion of "+string(p.ID))
	}

	calls := session.APICalls()
	require.Len(t, calls, 5)
	assert.Equal(t, "expert_clinical_psychologist", calls[0].Agent)
	assert.Equal(t, "comprehensive_synthesis", calls[4].Agent)
}

func TestComprehensiveResponse_SynthesisFailure(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: func(req llm.Request) (llm.Response, error) {
		if llmtest.SystemPrompt(req) == persona.SynthesizerInstruction {
			return llm.Response{}, errors.New("overloaded")
		}
		return llm.Response{Content: "ok"}, nil
	}}
	svc, _, _ := newService(t, fake, runeCounter{})

	answer := svc.ComprehensiveResponse(context.Background(), "q", "", []persona.ID{persona.Pediatrician, "nobody"})
	require.Len(t, answer.Individual, 1)
	assert.Equal(t, persona.Pediatrician, answer.Individual[0].Persona.ID)
	assert.Equal(t, msgSynthesisFailed, answer.Synthesized)
}

func TestExpertResponse(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("## 👨‍⚕️ 専門的見解")}
	svc, session, v := newService(t, fake, runeCounter{})
	v.verdict = quality.Verdict{IsValid: false, Score: 40}

	answer, ok := svc.ExpertResponse(context.Background(), persona.Pediatrician, "q", "")
	require.True(t, ok)
	assert.Equal(t, "## 👨‍⚕️ 専門的見解", answer)

	req := fake.Requests()[0]
	assert.Equal(t, 300, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Contains(t, llmtest.UserPrompt(req), "※他の専門家と意見が異なる可能性がある場合は、その旨を明記してください。")

	evals := session.Evaluations()
	require.Len(t, evals, 1)
	assert.Equal(t, 40, evals[0].Score)
	assert.Equal(t, false, evals[0].Details["is_valid"])

	_, ok = svc.ExpertResponse(context.Background(), "nobody", "q", "")
	assert.False(t, ok)
}
