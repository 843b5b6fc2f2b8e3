package experts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/llm"
	"story-coach/internal/llm/llmtest"
	"story-coach/internal/persona"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Sequential ")
	require.NoError(t, err)
	assert.Equal(t, ModeSequential, m)

	_, err = ParseMode("team-of-cats")
	assert.Error(t, err)
}

func TestTextStream_SequentialHeadings(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: personaChunks}
	svc, _, _ := newService(t, fake, runeCounter{})

	got := Collect(svc.TextStream(context.Background(), Ask{Mode: ModeSequential, Question: "質問", Tone: persona.Standard}))

	assert.NotContains(t, got, StartMarker)
	assert.NotContains(t, got, EndMarker)
	for _, p := range persona.Default().List() {
		assert.Contains(t, got, "◆ "+p.Icon+" "+p.Name)
		assert.Contains(t, got, string(p.ID)+":1"+string(p.ID)+":2")
	}
}

func TestTextStream_ExpertAndQuick(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: func(req llm.Request) (llm.Stream, error) {
		return llm.NewSliceStream([]llm.Delta{{Text: "答え"}}, nil), nil
	}}
	svc, session, _ := newService(t, fake, runeCounter{})

	got := Collect(svc.TextStream(context.Background(), Ask{Mode: ModeExpert, Persona: persona.Pediatrician, Question: "q"}))
	assert.Equal(t, "答え", got)

	got = Collect(svc.TextStream(context.Background(), Ask{Mode: ModeQuick, Question: "q"}))
	assert.Equal(t, "答え", got)

	calls := session.APICalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "expert_stream_pediatrician", calls[0].Agent)
	assert.Equal(t, "quick_response", calls[1].Agent)
}
