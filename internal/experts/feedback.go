package experts

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"

	"story-coach/internal/agents"
	"story-coach/internal/persona"
	"story-coach/internal/quality"
	"story-coach/internal/telemetry"
)

var ErrUnknownParentAction = errors.New("unknown parent action")

const (
	msgUnknownCoach        = "エラー: 指定されたAIモードが見つかりません。"
	msgUnknownParentAction = "エラー: 選択された保護者の対応が見つかりません。"
)

// ChoiceFeedback is a child's pick in a scene.
type ChoiceFeedback struct {
	Scene      string            `json:"scene"`
	Choice     string            `json:"choice"`
	Evaluation agents.Evaluation `json:"evaluation"`
	Hint       string            `json:"hint,omitempty"`
}

func (s *Service) feedbackCall(f ChoiceFeedback) streamCall {
	return streamCall{
		agent:       "feedback_generator",
		system:      persona.ChildFeedbackInstruction(f.Scene, f.Choice, string(f.Evaluation), f.Hint),
		user:        "選択した行動: " + f.Choice,
		maxTokens:   s.opts.MaxTokens,
		temperature: blockingTemperature,
	}
}

// ParentReaction is a parent's answer to a child's behavior. Detailed asks
// for the long explanation; Reference is optional background knowledge.
type ParentReaction struct {
	Event        string            `json:"event"`
	ChildAction  string            `json:"child_action"`
	ParentAction string            `json:"parent_action"`
	Evaluation   agents.Evaluation `json:"evaluation"`
	Coach        persona.Coach     `json:"coach,omitempty"`
	Detailed     bool              `json:"detailed,omitempty"`
	Reference    string            `json:"reference,omitempty"`
}

func (s *Service) reactionCall(r ParentReaction) (streamCall, error) {
	coach, err := persona.ParseCoach(string(r.Coach))
	if err != nil {
		return streamCall{}, err
	}
	level, maxTokens := "brief", s.opts.MaxTokens
	if r.Detailed {
		level, maxTokens = "detailed", s.opts.MaxTokens*3
	}
	return streamCall{
		agent: "parent_action_feedback",
		system: persona.ParentActionInstruction(coach, r.Event, r.ChildAction, r.ParentAction,
			string(r.Evaluation), r.Detailed, r.Reference),
		user: fmt.Sprintf(`
イベント: %s
子どもの行動: %s
保護者の対応: %s
評価: %s

この保護者の対応について、%sのフィードバックをお願いします。
`, r.Event, r.ChildAction, r.ParentAction, r.Evaluation, level),
		maxTokens:   maxTokens,
		temperature: blockingTemperature,
	}, nil
}

// ParentOption is one of the fixed reactions offered on the guide page.
type ParentOption struct {
	Text       string            `json:"text"`
	Evaluation agents.Evaluation `json:"evaluation"`
	Hint       string            `json:"ai_hint"`
}

// ParentOptions are the reactions a situation guide can explain.
var ParentOptions = []ParentOption{
	{
		Text:       "「やめなさい！」と強く叱る",
		Evaluation: agents.Inappropriate,
		Hint:       "子どもを強く叱るだけでは、問題行動の根本的な解決にはつながりにくいです。なぜそのような行動をとったのかを理解し、より建設的なアプローチを検討しましょう。",
	},
	{
		Text:       "理由を尋ねてから、落ち着いて説明する",
		Evaluation: agents.Appropriate,
		Hint:       "子どもの行動の背景にある理由を理解しようとすることは、適切な支援の第一歩です。落ち着いて対話することで、子どもも安心して自分の気持ちを伝えやすくなります。",
	},
	{
		Text:       "他の子に目を向けるように促す",
		Evaluation: agents.Acceptable,
		Hint:       "一時的に注意をそらすことは有効な場合がありますが、根本的な解決にはなりません。子どもの状況を把握し、より良い行動を促すための具体的な方法を考えましょう。",
	},
	{
		Text:       "抱きしめて気持ちを受け止める",
		Evaluation: agents.Appropriate,
		Hint:       "子どもが感情的になっている時は、まず気持ちを受け止めることが大切です。安心感を与えることで、落ち着きを取り戻し、次のステップに進む準備ができます。",
	},
	{
		Text:       "選択肢をいくつか示し、自分で選ばせる",
		Evaluation: agents.Appropriate,
		Hint:       "子どもに選択肢を与えることで、自主性や問題解決能力を育むことができます。自分で選ぶ経験は、成功体験となり自己肯定感を高めます。",
	},
}

// LookupParentOption finds an offered reaction by its exact text.
func LookupParentOption(text string) (ParentOption, error) {
	for _, o := range ParentOptions {
		if o.Text == text {
			return o, nil
		}
	}
	return ParentOption{}, fmt.Errorf("%w: %s", ErrUnknownParentAction, text)
}

// GuideRequest asks for a situation guide on one of ParentOptions.
type GuideRequest struct {
	Event        string        `json:"event"`
	Scene        string        `json:"scene"`
	ChildAction  string        `json:"child_action"`
	ParentAction string        `json:"parent_action"`
	Coach        persona.Coach `json:"coach,omitempty"`
}

func (s *Service) guideCall(g GuideRequest) (streamCall, error) {
	coach, err := persona.ParseCoach(string(g.Coach))
	if err != nil {
		return streamCall{}, err
	}
	option, err := LookupParentOption(g.ParentAction)
	if err != nil {
		return streamCall{}, err
	}
	return streamCall{
		agent: "situation_guide",
		system: coach.Instruction() + "\n\n" +
			persona.SituationGuideInstruction(g.Event, g.Scene, g.ChildAction, option.Text, option.Hint),
		user: fmt.Sprintf(`
イベント: %s
シーン: %s
子どもの行動: %s
保護者の行動: %s
この状況での私（保護者）の行動について、%sの視点から具体的なガイドとアドバイスをお願いします。
`, g.Event, g.Scene, g.ChildAction, option.Text, coach.DisplayName()),
		maxTokens:   s.opts.MaxTokens * 3,
		temperature: blockingTemperature,
	}, nil
}

func (s *Service) questionCall(question string, c persona.Coach) (streamCall, error) {
	coach, err := persona.ParseCoach(string(c))
	if err != nil {
		return streamCall{}, err
	}
	return streamCall{
		agent:       "parent_question",
		system:      coach.Instruction(),
		user:        question,
		maxTokens:   s.opts.MaxTokens * 2,
		temperature: blockingTemperature,
	}, nil
}

func feedbackCriteria() quality.Criteria {
	return quality.Criteria{
		"clarity":           "フィードバックが明確で理解しやすいか",
		"appropriateness":   "評価に適した内容か",
		"educational_value": "教育的価値があるか",
	}
}

// evaluateFeedback scores feedback on a child's choice.
func (s *Service) evaluateFeedback(ctx context.Context, f ChoiceFeedback, text string) {
	if s.validator == nil {
		return
	}
	verdict := s.validator.Validate(ctx, "feedback", map[string]string{
		"feedback":   text,
		"evaluation": string(f.Evaluation),
		"choice":     f.Choice,
	}, feedbackCriteria())

	s.collector.RecordEvaluation(telemetry.EvaluationRecord{
		Type:     "feedback_quality",
		Score:    verdict.Score,
		Criteria: map[string]any{"description": "品質管理エージェントによる評価", "rubric": map[string]any(feedbackCriteria())},
		Details: map[string]any{
			"is_valid":        verdict.IsValid,
			"issues":          verdict.Issues,
			"suggestions":     verdict.Suggestions,
			"user_evaluation": string(f.Evaluation),
		},
	})

	if !verdict.IsValid || verdict.Score < lowScore {
		log.Printf("⚠️ Low quality feedback detected: score=%d, is_valid=%v, issues=%s",
			verdict.Score, verdict.IsValid, strings.Join(verdict.Issues, "; "))
	}
}

// Feedback returns a short encouraging reply to a child's choice and scores it.
func (s *Service) Feedback(ctx context.Context, f ChoiceFeedback) (string, error) {
	text, err := s.blocking(ctx, "feedback", s.feedbackCall(f))
	if err != nil {
		return "", err
	}
	s.evaluateFeedback(ctx, f, text)
	log.Printf("✅ Generated feedback for choice: %s", f.Choice)
	return text, nil
}

// FeedbackStream streams the same reply as Feedback. The finished text is
// scored the same way.
func (s *Service) FeedbackStream(ctx context.Context, f ChoiceFeedback) iter.Seq[string] {
	return func(yield func(string) bool) {
		call := s.feedbackCall(f)
		call.check = func(ctx context.Context, text string) { s.evaluateFeedback(ctx, f, text) }
		s.runStream(ctx, "feedback", call, yield)
	}
}

// ParentActionFeedback comments on a parent's reaction with the given coach style.
func (s *Service) ParentActionFeedback(ctx context.Context, r ParentReaction) (string, error) {
	call, err := s.reactionCall(r)
	if err != nil {
		return "", err
	}
	return s.blocking(ctx, "parent_action_feedback", call)
}

func (s *Service) ParentActionFeedbackStream(ctx context.Context, r ParentReaction) iter.Seq[string] {
	return func(yield func(string) bool) {
		call, err := s.reactionCall(r)
		if err != nil {
			log.Printf("❌ Invalid parent action feedback request: %v", err)
			yield(msgUnknownCoach)
			return
		}
		s.runStream(ctx, "parent_action_feedback", call, yield)
	}
}

// SituationGuide explains why a parent reaction helps or not. The reaction
// must be one of ParentOptions.
func (s *Service) SituationGuide(ctx context.Context, g GuideRequest) (string, error) {
	call, err := s.guideCall(g)
	if err != nil {
		return "", err
	}
	return s.blocking(ctx, "situation_guide", call)
}

func (s *Service) SituationGuideStream(ctx context.Context, g GuideRequest) iter.Seq[string] {
	return func(yield func(string) bool) {
		call, err := s.guideCall(g)
		if err != nil {
			log.Printf("❌ Invalid situation guide request: %v", err)
			if errors.Is(err, ErrUnknownParentAction) {
				yield(msgUnknownParentAction)
			} else {
				yield(msgUnknownCoach)
			}
			return
		}
		s.runStream(ctx, "situation_guide", call, yield)
	}
}

// AnswerParentQuestion answers a free question in the voice of coach.
func (s *Service) AnswerParentQuestion(ctx context.Context, question string, coach persona.Coach) (string, error) {
	call, err := s.questionCall(question, coach)
	if err != nil {
		return "", err
	}
	return s.blocking(ctx, "parent_question", call)
}

func (s *Service) AnswerParentQuestionStream(ctx context.Context, question string, coach persona.Coach) iter.Seq[string] {
	return func(yield func(string) bool) {
		call, err := s.questionCall(question, coach)
		if err != nil {
			log.Printf("❌ Invalid parent question request: %v", err)
			yield(msgUnknownCoach)
			return
		}
		s.runStream(ctx, "parent_question", call, yield)
	}
}

func (s *Service) blocking(ctx context.Context, source string, call streamCall) (string, error) {
	text, err := s.generate(ctx, call.agent, call.system, call.user, call.maxTokens)
	if err != nil {
		log.Printf("❌ Error in %s: %v", source, err)
		s.recordFailure(source, err, nil)
		return "", err
	}
	return text, nil
}

// runStream streams call and turns a failure into one diagnostic chunk.
func (s *Service) runStream(ctx context.Context, source string, call streamCall, yield func(string) bool) {
	if _, err := s.streamText(ctx, call, yield); err != nil {
		log.Printf("❌ Error in %s stream: %v", source, err)
		s.recordFailure(source, err, nil)
		yield(diagnostic(err))
	}
}
