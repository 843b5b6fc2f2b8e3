package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"story-coach/internal/llm"
	"story-coach/internal/persona"
	"story-coach/internal/telemetry"
)

const (
	AgentScenarioGenerator = "scenario_generator"
	AgentGuideGenerator    = "guide_generator"

	generationTemperature = 0.8
)

// GenerationRequest описывает параметры одной задачи генерации.
type GenerationRequest struct {
	Topic         string
	Index         int
	BaseSituation string
	LearningGoal  string
	Behaviors     []string
}

// Coordinator only generates. Validation and retry belong to the caller,
// so each caller can apply its own threshold.
type Coordinator struct {
	client    llm.Client
	maxTokens int
	collector telemetry.Collector
}

// NewCoordinator создает координатора генерации
func NewCoordinator(client llm.Client, maxTokens int, collector telemetry.Collector) *Coordinator {
	return &Coordinator{
		client:    client,
		maxTokens: maxTokens,
		collector: telemetry.OrNop(collector),
	}
}

// GenerateScenarioVariation генерирует вариацию сцены на основе шаблона.
// При любой ошибке возвращает nil и причину.
func (c *Coordinator) GenerateScenarioVariation(ctx context.Context, req GenerationRequest) (*Scenario, error) {
	log.Printf("🔄 Generating scenario variation for %s, scene %d", req.Topic, req.Index)

	userMessage := fmt.Sprintf(`
以下の基本シナリオをもとに、教育的に適切なバリエーションを生成してください。

【基本シナリオ】
%s

【学習目標】
%s

【生成要件】
1. 基本的な状況は維持しつつ、表現や細部を変化させる
2. 子どもが理解しやすい言葉を使用する
3. ASDの特性を考慮した適切な表現にする
4. 3つの選択肢を生成する（適切・許容・不適切を各1つ）

JSON形式で以下の構造で返してください：
{
  "situation_text": "状況説明",
  "choices": [
    {"text": "選択肢1", "evaluation": "appropriate", "hint": "ヒント"},
    {"text": "選択肢2", "evaluation": "acceptable", "hint": "ヒント"},
    {"text": "選択肢3", "evaluation": "inappropriate", "hint": "ヒント"}
  ]
}
`, req.BaseSituation, req.LearningGoal)

	content, err := c.generateJSON(ctx, AgentScenarioGenerator,
		persona.ScenarioGeneratorInstruction(req.Topic, req.Index), userMessage, c.maxTokens*2)
	if err != nil {
		log.Printf("❌ Error generating scenario variation for %s_%d: %v", req.Topic, req.Index, err)
		return nil, err
	}

	var scenario Scenario
	if err := json.Unmarshal([]byte(content), &scenario); err != nil {
		log.Printf("❌ Scenario variation for %s_%d is not valid JSON: %v", req.Topic, req.Index, err)
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		log.Printf("❌ Scenario variation for %s_%d rejected: %v", req.Topic, req.Index, err)
		return nil, err
	}
	scenario.Generated = true

	log.Printf("✅ Generated scenario variation for %s_%d", req.Topic, req.Index)
	return &scenario, nil
}

// GenerateParentSituation генерирует ситуацию для родителей по примерам поведения ребенка.
func (c *Coordinator) GenerateParentSituation(ctx context.Context, req GenerationRequest) (*ParentSituation, error) {
	log.Printf("🔄 Generating parent situation for %s", req.Topic)

	userMessage := fmt.Sprintf(`
以下のイベントと子どもの行動をもとに、保護者向けの学習シチュエーションを生成してください。

【イベント】
%s

【参考となる子どもの行動例】
%s

【生成要件】
1. 実際に起こりうる具体的な状況を設定する
2. 保護者が対応に悩むような場面を選ぶ
3. 3つの保護者の対応選択肢を生成する（適切・許容・不適切を含む）
4. 各対応について、なぜその評価なのかのヒントを含める

JSON形式で以下の構造で返してください：
{
  "child_action": "子どもの具体的な行動",
  "parent_actions": [
    {"text": "対応1", "evaluation": "appropriate", "ai_hint": "詳細な説明"},
    {"text": "対応2", "evaluation": "acceptable", "ai_hint": "詳細な説明"},
    {"text": "対応3", "evaluation": "inappropriate", "ai_hint": "詳細な説明"}
  ]
}
`, req.Topic, strings.Join(req.Behaviors, ", "))

	content, err := c.generateJSON(ctx, AgentGuideGenerator,
		persona.GuideGeneratorInstruction, userMessage, c.maxTokens*3)
	if err != nil {
		log.Printf("❌ Error generating parent situation for %s: %v", req.Topic, err)
		return nil, err
	}

	var situation ParentSituation
	if err := json.Unmarshal([]byte(content), &situation); err != nil {
		log.Printf("❌ Parent situation for %s is not valid JSON: %v", req.Topic, err)
		return nil, fmt.Errorf("decode parent situation: %w", err)
	}
	if err := situation.Validate(); err != nil {
		log.Printf("❌ Parent situation for %s rejected: %v", req.Topic, err)
		return nil, err
	}
	situation.Event = req.Topic
	situation.Generated = true

	log.Printf("✅ Generated parent situation for %s", req.Topic)
	return &situation, nil
}

// generateJSON makes one JSON-mode call and records it.
func (c *Coordinator) generateJSON(ctx context.Context, agent, system, user string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := c.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		MaxTokens:   maxTokens,
		Temperature: generationTemperature,
		JSONMode:    true,
	})
	rec := telemetry.APICallRecord{
		Model:            c.client.Model(),
		Agent:            agent,
		LatencyMS:        time.Since(start).Milliseconds(),
		Temperature:      generationTemperature,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if err != nil {
		rec.Error = err.Error()
		c.collector.RecordAPICall(rec)
		c.collector.RecordError(telemetry.ErrorRecord{Source: agent, Message: err.Error()})
		return "", fmt.Errorf("%s call: %w", agent, err)
	}
	c.collector.RecordAPICall(rec)

	content := llm.ExtractJSON(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", agent, llm.ErrEmptyResponse)
	}
	return content, nil
}
