package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/llm/llmtest"
	"story-coach/internal/telemetry"
)

const scenarioJSON = `{
  "situation_text": "トイレに行きたくなったよ。",
  "choices": [
    {"text": "先生に言う", "evaluation": "appropriate", "hint": "言葉で伝える"},
    {"text": "がまんする", "evaluation": "acceptable", "hint": "少しならよい"},
    {"text": "その場で泣く", "evaluation": "inappropriate", "hint": "伝わらない"}
  ]
}`

const situationJSON = `{
  "child_action": "順番待ちで泣き出した",
  "parent_actions": [
    {"text": "あと何人か見せる", "evaluation": "appropriate", "ai_hint": "見通し"},
    {"text": "抱っこする", "evaluation": "acceptable", "ai_hint": "安心"},
    {"text": "叱る", "evaluation": "inappropriate", "ai_hint": "不安が増す"}
  ]
}`

func TestGenerateScenarioVariation(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("```json\n" + scenarioJSON + "\n```")}
	session := telemetry.NewSession(telemetry.Pricing{})
	c := NewCoordinator(fake, 500, session)

	got, err := c.GenerateScenarioVariation(context.Background(), GenerationRequest{
		Topic: "toilet", Index: 0, BaseSituation: "T", LearningGoal: "「言葉で伝える」という行動を学ぶ",
	})
	require.NoError(t, err)
	assert.Equal(t, "トイレに行きたくなったよ。", got.SituationText)
	assert.True(t, got.Generated)
	require.NoError(t, ValidateChoices(got.Choices))
	assert.Equal(t, "言葉で伝える", got.AppropriateHint())

	req := fake.Requests()[0]
	assert.Equal(t, 1000, req.MaxTokens)
	assert.InDelta(t, 0.8, req.Temperature, 1e-6)
	assert.True(t, req.JSONMode)
	assert.Contains(t, llmtest.UserPrompt(req), "【基本シナリオ】\nT\n")
	assert.Contains(t, llmtest.UserPrompt(req), "【学習目標】\n「言葉で伝える」という行動を学ぶ")
	assert.Contains(t, llmtest.SystemPrompt(req), "toilet")

	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, AgentScenarioGenerator, calls[0].Agent)
}

func TestGenerateScenarioVariation_Failures(t *testing.T) {
	cases := map[string]*llmtest.Fake{
		"transport":     {},
		"not json":      {GenerateFunc: llmtest.Reply("ごめんなさい")},
		"empty":         {GenerateFunc: llmtest.Reply("   ")},
		"unknown label": {GenerateFunc: llmtest.Reply(`{"situation_text":"x","choices":[{"text":"a","evaluation":"great"},{"text":"b","evaluation":"acceptable"},{"text":"c","evaluation":"inappropriate"}]}`)},
		"duplicate":     {GenerateFunc: llmtest.Reply(`{"situation_text":"x","choices":[{"text":"a","evaluation":"appropriate"},{"text":"b","evaluation":"appropriate"},{"text":"c","evaluation":"inappropriate"}]}`)},
		"two choices":   {GenerateFunc: llmtest.Reply(`{"situation_text":"x","choices":[{"text":"a","evaluation":"appropriate"},{"text":"b","evaluation":"acceptable"}]}`)},
		"no situation":  {GenerateFunc: llmtest.Reply(`{"choices":[{"text":"a","evaluation":"appropriate"},{"text":"b","evaluation":"acceptable"},{"text":"c","evaluation":"inappropriate"}]}`)},
	}
	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewCoordinator(fake, 500, nil)
			got, err := c.GenerateScenarioVariation(context.Background(), GenerationRequest{Topic: "toilet"})
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestGenerateParentSituation(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply(situationJSON)}
	c := NewCoordinator(fake, 500, nil)

	got, err := c.GenerateParentSituation(context.Background(), GenerationRequest{
		Topic: "barber", Behaviors: []string{"じっと座る", "泣く"},
	})
	require.NoError(t, err)
	assert.Equal(t, "barber", got.Event)
	assert.Equal(t, "見通し", got.ParentActions[0].Hint)
	require.NoError(t, ValidateChoices(got.ParentActions))

	req := fake.Requests()[0]
	assert.Equal(t, 1500, req.MaxTokens)
	assert.Contains(t, llmtest.UserPrompt(req), "じっと座る, 泣く")
}

func TestGenerateParentSituation_Transport(t *testing.T) {
	session := telemetry.NewSession(telemetry.Pricing{})
	c := NewCoordinator(&llmtest.Fake{}, 500, session)

	got, err := c.GenerateParentSituation(context.Background(), GenerationRequest{Topic: "barber"})
	assert.Error(t, err)
	assert.Nil(t, got)

	snap := session.Snapshot()
	require.Len(t, snap.APICalls, 1)
	assert.NotEmpty(t, snap.APICalls[0].Error)
	assert.Len(t, snap.Errors, 1)
}

func TestChoice_AcceptsAllHintNames(t *testing.T) {
	var choices []Choice
	require.NoError(t, json.Unmarshal([]byte(`[
		{"text":"a","evaluation":"appropriate","hint":"h1"},
		{"text":"b","evaluation":"acceptable","ai_feedback_hint":"h2"},
		{"text":"c","evaluation":"inappropriate","ai_hint":"h3"}
	]`), &choices))
	assert.Equal(t, "h1", choices[0].Hint)
	assert.Equal(t, "h2", choices[1].Hint)
	assert.Equal(t, "h3", choices[2].Hint)
}

func TestParseEvaluation(t *testing.T) {
	for _, e := range Evaluations {
		got, err := ParseEvaluation(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEvaluation("excellent")
	assert.Error(t, err)
}

func TestValidateChoices(t *testing.T) {
	ok := []Choice{
		{Text: "a", Evaluation: Inappropriate},
		{Text: "b", Evaluation: Appropriate},
		{Text: "c", Evaluation: Acceptable},
	}
	assert.NoError(t, ValidateChoices(ok), "order does not matter")

	four := append(append([]Choice(nil), ok...), Choice{Text: "d", Evaluation: Appropriate})
	assert.ErrorIs(t, ValidateChoices(four), ErrInvalidChoices)

	noText := append([]Choice(nil), ok...)
	noText[0].Text = ""
	assert.ErrorIs(t, ValidateChoices(noText), ErrInvalidChoices)

	unknown := append([]Choice(nil), ok...)
	unknown[1].Evaluation = "great"
	assert.ErrorIs(t, ValidateChoices(unknown), ErrInvalidChoices)
}
