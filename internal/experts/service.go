// Package experts answers parent questions through the expert personas:
// one expert, every expert in turn, a synthesized team answer, or the quick
// composite expert. It also writes feedback on child and parent choices in
// one of the coach styles.
package experts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"story-coach/internal/llm"
	"story-coach/internal/persona"
	"story-coach/internal/quality"
	"story-coach/internal/telemetry"
	"story-coach/internal/tokens"
)

type Tone = persona.Tone

const (
	StartMarker = "__START__"
	EndMarker   = "__END__"
)

const (
	msgUnknownPersona  = "エラー: 指定された専門家が見つかりません。"
	msgGenerateFailed  = "申し訳ございません。回答の生成に失敗しました。"
	msgSynthesisFailed = "申し訳ございません。回答の統合に失敗しました。"

	blockingTemperature = 0.7
	lowScore            = 60
)

// ExpertChunk is one element of the sequential stream. Chunk is StartMarker,
// EndMarker or a text fragment of that persona's answer.
type ExpertChunk struct {
	PersonaID   string `json:"agent_id"`
	PersonaName string `json:"agent_name"`
	PersonaIcon string `json:"agent_icon"`
	Chunk       string `json:"chunk"`
}

func chunkOf(p persona.Persona, text string) ExpertChunk {
	return ExpertChunk{PersonaID: string(p.ID), PersonaName: p.Name, PersonaIcon: p.Icon, Chunk: text}
}

var errorChunk = ExpertChunk{PersonaID: "error", PersonaName: "エラー", PersonaIcon: "❌", Chunk: msgGenerateFailed}

func diagnostic(err error) string {
	return fmt.Sprintf("\n\n[DEBUG] エラーが発生しました: %v\n詳細はログを確認してください。", err)
}

// Validator is the part of quality.Validator the service needs.
type Validator interface {
	Validate(ctx context.Context, contentType string, content any, criteria quality.Criteria) quality.Verdict
}

type Options struct {
	MaxTokens int
	// Timeout bounds each Gateway call. Zero disables it.
	Timeout time.Duration
}

// Service is the specialized agent service. It holds no per-session state;
// telemetry goes to the injected collector.
type Service struct {
	client    llm.Client
	registry  *persona.Registry
	validator Validator
	counter   tokens.Counter
	collector telemetry.Collector
	opts      Options
}

// NewService создает сервис экспертов. validator и counter могут быть nil.
func NewService(client llm.Client, registry *persona.Registry, validator Validator, counter tokens.Counter, collector telemetry.Collector, opts Options) *Service {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &Service{
		client:    client,
		registry:  registry,
		validator: validator,
		counter:   counter,
		collector: telemetry.OrNop(collector),
		opts:      opts,
	}
}

func (s *Service) Registry() *persona.Registry { return s.registry }

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *Service) recordFailure(source string, err error, kv map[string]string) {
	s.collector.RecordError(telemetry.ErrorRecord{Source: source, Message: err.Error(), Context: kv})
}

func expertCriteria(withSafety bool) quality.Criteria {
	c := quality.Criteria{
		"expertise": "専門性が反映されているか",
		"clarity":   "明確で理解しやすいか",
		"practical": "実践的なアドバイスが含まれているか",
		"empathy":   "保護者に寄り添った内容か",
	}
	if withSafety {
		c["safety"] = "倫理的に適切で安全な内容か"
	}
	return c
}

// evaluate scores one expert answer and records the verdict.
func (s *Service) evaluate(ctx context.Context, p persona.Persona, question, response string, criteria quality.Criteria) {
	if s.validator == nil {
		return
	}
	verdict := s.validator.Validate(ctx, "expert_response", map[string]string{
		"agent":    p.Name,
		"question": question,
		"response": response,
	}, criteria)

	s.collector.RecordEvaluation(telemetry.EvaluationRecord{
		Type:     "expert_quality_" + string(p.ID),
		Score:    verdict.Score,
		Criteria: map[string]any{"description": p.Name + "の回答品質評価", "rubric": map[string]any(criteria)},
		Details: map[string]any{
			"is_valid":    verdict.IsValid,
			"issues":      verdict.Issues,
			"suggestions": verdict.Suggestions,
		},
	})

	if !verdict.IsValid || verdict.Score < lowScore {
		log.Printf("⚠️ Low quality response detected: score=%d, is_valid=%v, issues=%s",
			verdict.Score, verdict.IsValid, strings.Join(verdict.Issues, "; "))
	}
}

// generate makes one blocking call and records it under agent.
func (s *Service) generate(ctx context.Context, agent, system, user string, maxTokens int) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		MaxTokens:   maxTokens,
		Temperature: blockingTemperature,
	})
	rec := telemetry.APICallRecord{
		Model:            s.client.Model(),
		Agent:            agent,
		LatencyMS:        time.Since(start).Milliseconds(),
		Temperature:      blockingTemperature,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if err != nil {
		rec.Error = err.Error()
		s.collector.RecordAPICall(rec)
		return "", fmt.Errorf("%s call: %w", agent, err)
	}
	s.collector.RecordAPICall(rec)
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%s: %w", agent, llm.ErrEmptyResponse)
	}
	return resp.Content, nil
}
