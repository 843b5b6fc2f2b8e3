package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/config"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"here:\n```\n{\"a\":1}\n```", `{"a":1}`},
		{"```\nnot json\n```", "```\nnot json\n```"},
		{"", ""},
	}
	for _, tc := range cases {
		in, want := tc.in, tc.want
		assert.Equal(t, want, ExtractJSON(in), "input %q", in)
	}
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream([]Delta{{Text: "a"}, {Text: "b"}}, boom)

	require.True(t, s.Next())
	assert.Equal(t, "a", s.Current().Text)
	assert.NoError(t, s.Err(), "error is reported only after the last delta")
	require.True(t, s.Next())
	assert.Equal(t, "b", s.Current().Text)
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), boom)

	require.NoError(t, s.Close())
	assert.True(t, s.Closed())
	assert.False(t, s.Next())
}

func TestSliceStream_CloseEarly(t *testing.T) {
	s := NewSliceStream([]Delta{{Text: "a"}, {Text: "b"}}, errors.New("never seen"))
	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestMessageHelpers(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "s"}, System("s"))
	assert.Equal(t, Message{Role: RoleUser, Content: "u"}, User("u"))
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := &Factory{}
	_, err := f.CreateClient("gemini", "")
	assert.Error(t, err)
}

func TestFactory_MissingCredentials(t *testing.T) {
	f := &Factory{}
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderYandex} {
		_, err := f.CreateClient(p, "")
		assert.ErrorIs(t, err, ErrMissingCredentials, p)
	}
}

func TestFactory_CreateFromConfig(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "k"}
	c, err := f.CreateFromConfig(&config.Config{LLMProvider: config.ProviderOpenAI})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, c.Model())
}

func TestFactory_OpenAIAndAnthropic(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "k", AnthropicAPIKey: "k"}

	c, err := f.CreateClient(ProviderOpenAI, "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.Model())

	c, err = f.CreateClient("Anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultAnthropicModel, c.Model())
}

func TestAnthropicBuildParams_LiftsSystem(t *testing.T) {
	c := NewAnthropic("k", "", "m")
	p := c.buildParams(Request{
		Messages:    []Message{System("sys"), User("hi")},
		MaxTokens:   100,
		Temperature: 0.3,
		JSONMode:    true,
	})
	require.Len(t, p.System, 1)
	assert.Contains(t, p.System[0].Text, "sys")
	assert.Contains(t, p.System[0].Text, "JSON")
	assert.Len(t, p.Messages, 1)
	assert.EqualValues(t, 100, p.MaxTokens)
}

func TestOpenAIBuildRequest(t *testing.T) {
	c := NewOpenAI("k", "", "gpt-4o-mini", "", "")
	r := c.buildRequest(Request{Messages: []Message{User("hi")}, MaxTokens: 50, JSONMode: true}, true)
	assert.True(t, r.Stream)
	require.NotNil(t, r.ResponseFormat)
	require.NotNil(t, r.StreamOptions)
	assert.True(t, r.StreamOptions.IncludeUsage)
	assert.Equal(t, 50, r.MaxTokens)
}
