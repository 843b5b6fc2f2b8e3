package experts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/agents"
	"story-coach/internal/llm"
	"story-coach/internal/llm/llmtest"
	"story-coach/internal/persona"
)

var brushTeeth = ChoiceFeedback{
	Scene:      "朝、歯をみがく時間です。",
	Choice:     "自分で歯ブラシを持ってみがく",
	Evaluation: agents.Appropriate,
	Hint:       "自分から行動できたことを褒める",
}

func TestFeedback_ScoredAsFeedbackQuality(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("よくできたね！😊")}
	svc, session, v := newService(t, fake, runeCounter{})

	text, err := svc.Feedback(context.Background(), brushTeeth)
	require.NoError(t, err)
	assert.Equal(t, "よくできたね！😊", text)

	req := fake.Requests()[0]
	assert.Equal(t, 100, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, "選択した行動: "+brushTeeth.Choice, llmtest.UserPrompt(req))
	assert.Contains(t, llmtest.SystemPrompt(req), "「適切な行動」の場合")
	assert.Contains(t, llmtest.SystemPrompt(req), brushTeeth.Hint)

	assert.Equal(t, []string{"feedback"}, v.calls)
	evals := session.Evaluations()
	require.Len(t, evals, 1)
	assert.Equal(t, "feedback_quality", evals[0].Type)
	assert.Equal(t, 85, evals[0].Score)
	assert.Equal(t, "appropriate", evals[0].Details["user_evaluation"])

	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "feedback_generator", calls[0].Agent)
	assert.False(t, calls[0].Streaming)
}

func TestFeedback_GatewayFailure(t *testing.T) {
	fake := &llmtest.Fake{}
	svc, session, v := newService(t, fake, runeCounter{})

	_, err := svc.Feedback(context.Background(), brushTeeth)
	assert.ErrorIs(t, err, llmtest.ErrUnavailable)
	assert.Empty(t, v.calls)
	assert.Len(t, session.Snapshot().Errors, 1)
}

func TestFeedback_DefaultHintForInappropriate(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("うーん、ちょっと違うかな")}
	svc, _, _ := newService(t, fake, runeCounter{})

	_, err := svc.Feedback(context.Background(), ChoiceFeedback{Scene: "s", Choice: "走り回る", Evaluation: agents.Inappropriate})
	require.NoError(t, err)
	system := llmtest.SystemPrompt(fake.Requests()[0])
	assert.Contains(t, system, "「不適切な行動」の場合")
	assert.Contains(t, system, "子どもの選択を評価し")
}

func TestFeedbackStream_ScoresFinishedText(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("よく", "できたね")}
	svc, session, v := newService(t, fake, runeCounter{})

	assert.Equal(t, "よくできたね", Collect(svc.FeedbackStream(context.Background(), brushTeeth)))

	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "feedback_generator", calls[0].Agent)
	assert.True(t, calls[0].Streaming)
	assert.True(t, calls[0].Estimated)
	assert.Equal(t, []string{"feedback"}, v.calls)
	require.Len(t, session.Evaluations(), 1)
	assert.Equal(t, "feedback_quality", session.Evaluations()[0].Type)
}

func TestFeedbackStream_EarlyStopStillFinalizes(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("a", "b", "c")}
	svc, session, v := newService(t, fake, runeCounter{})

	for range svc.FeedbackStream(context.Background(), brushTeeth) {
		break
	}
	require.Len(t, session.APICalls(), 1)
	assert.Len(t, v.calls, 1)
	assert.True(t, fake.Streams()[0].Closed())
}

func TestParentActionFeedback_DetailLevels(t *testing.T) {
	reaction := ParentReaction{
		Event:        "床屋",
		ChildAction:  "バリカンの音を聞いてパニックになる",
		ParentAction: "事前に予告し、イヤーマフの使用を提案する",
		Evaluation:   agents.Appropriate,
	}

	t.Run("brief", func(t *testing.T) {
		fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("この対応は適切です。")}
		svc, session, v := newService(t, fake, runeCounter{})

		text, err := svc.ParentActionFeedback(context.Background(), reaction)
		require.NoError(t, err)
		assert.Equal(t, "この対応は適切です。", text)

		req := fake.Requests()[0]
		assert.Equal(t, 100, req.MaxTokens)
		system := llmtest.SystemPrompt(req)
		assert.Contains(t, system, persona.LogicalDoctor.Instruction())
		assert.Contains(t, system, "100文字以内が目安")
		assert.Contains(t, llmtest.UserPrompt(req), "briefのフィードバック")
		assert.Equal(t, "parent_action_feedback", session.APICalls()[0].Agent)
		assert.Empty(t, v.calls)
	})

	t.Run("detailed with reference", func(t *testing.T) {
		fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("詳しく説明します")}
		svc, _, _ := newService(t, fake, runeCounter{})

		r := reaction
		r.Detailed = true
		r.Coach = persona.CheerCoach
		r.Reference = "感覚過敏への配慮"
		_, err := svc.ParentActionFeedback(context.Background(), r)
		require.NoError(t, err)

		req := fake.Requests()[0]
		assert.Equal(t, 300, req.MaxTokens)
		system := llmtest.SystemPrompt(req)
		assert.Contains(t, system, persona.CheerCoach.Instruction())
		assert.Contains(t, system, "**ASDの特性との関連**")
		assert.Contains(t, system, "【参考情報（専門知識）】")
		assert.Contains(t, system, "感覚過敏への配慮")
	})

	t.Run("unknown coach", func(t *testing.T) {
		fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("x")}
		svc, _, _ := newService(t, fake, runeCounter{})

		r := reaction
		r.Coach = "night_owl"
		_, err := svc.ParentActionFeedback(context.Background(), r)
		assert.ErrorIs(t, err, persona.ErrUnknownCoach)
		assert.Empty(t, fake.Requests())

		assert.Equal(t, msgUnknownCoach, Collect(svc.ParentActionFeedbackStream(context.Background(), r)))
	})
}

func TestSituationGuide(t *testing.T) {
	option := ParentOptions[1]
	guide := GuideRequest{
		Event:        "公園",
		Scene:        "すべり台の順番を待っています。",
		ChildAction:  "列に割り込む",
		ParentAction: option.Text,
		Coach:        persona.GentleTeacher,
	}

	t.Run("blocking", func(t *testing.T) {
		fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("💡 保護者へのアドバイス")}
		svc, session, _ := newService(t, fake, runeCounter{})

		text, err := svc.SituationGuide(context.Background(), guide)
		require.NoError(t, err)
		assert.Equal(t, "💡 保護者へのアドバイス", text)

		req := fake.Requests()[0]
		assert.Equal(t, 300, req.MaxTokens)
		system := llmtest.SystemPrompt(req)
		assert.Contains(t, system, persona.GentleTeacher.Instruction())
		assert.Contains(t, system, option.Hint)
		assert.Contains(t, llmtest.UserPrompt(req), "🍀 やさしい先生の視点から")
		assert.Equal(t, "situation_guide", session.APICalls()[0].Agent)
	})

	t.Run("stream", func(t *testing.T) {
		fake := &llmtest.Fake{StreamFunc: llmtest.Chunks("ガイド", "です")}
		svc, session, v := newService(t, fake, runeCounter{})

		assert.Equal(t, "ガイドです", Collect(svc.SituationGuideStream(context.Background(), guide)))
		require.Len(t, session.APICalls(), 1)
		assert.True(t, session.APICalls()[0].Streaming)
		assert.Empty(t, v.calls)
	})

	t.Run("action outside the offered options", func(t *testing.T) {
		fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("x")}
		svc, _, _ := newService(t, fake, runeCounter{})

		g := guide
		g.ParentAction = "無視する"
		_, err := svc.SituationGuide(context.Background(), g)
		assert.ErrorIs(t, err, ErrUnknownParentAction)
		assert.Equal(t, msgUnknownParentAction, Collect(svc.SituationGuideStream(context.Background(), g)))
		assert.Empty(t, fake.Requests())
	})
}

func TestAnswerParentQuestion(t *testing.T) {
	fake := &llmtest.Fake{GenerateFunc: llmtest.Reply("大丈夫ですよ")}
	svc, session, _ := newService(t, fake, runeCounter{})

	text, err := svc.AnswerParentQuestion(context.Background(), "偏食が心配です", "🍀 やさしい先生")
	require.NoError(t, err)
	assert.Equal(t, "大丈夫ですよ", text)

	req := fake.Requests()[0]
	assert.Equal(t, 200, req.MaxTokens)
	assert.Equal(t, persona.GentleTeacher.Instruction(), llmtest.SystemPrompt(req))
	assert.Equal(t, "偏食が心配です", llmtest.UserPrompt(req))
	assert.Equal(t, "parent_question", session.APICalls()[0].Agent)
}

func TestAnswerParentQuestionStream_Failure(t *testing.T) {
	fake := &llmtest.Fake{StreamFunc: func(llm.Request) (llm.Stream, error) {
		return llm.NewSliceStream([]llm.Delta{{Text: "途中"}}, errors.New("connection reset")), nil
	}}
	svc, session, _ := newService(t, fake, runeCounter{})

	got := Collect(svc.AnswerParentQuestionStream(context.Background(), "q", ""))
	assert.Contains(t, got, "途中")
	assert.Contains(t, got, "connection reset")

	calls := session.APICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "connection reset", calls[0].Error)
	assert.Len(t, session.Snapshot().Errors, 1)
}

func TestLookupParentOption(t *testing.T) {
	o, err := LookupParentOption("他の子に目を向けるように促す")
	require.NoError(t, err)
	assert.Equal(t, agents.Acceptable, o.Evaluation)

	_, err = LookupParentOption("")
	assert.ErrorIs(t, err, ErrUnknownParentAction)
}
