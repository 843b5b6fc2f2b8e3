package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"story-coach/internal/llm"
	"story-coach/internal/persona"
	"story-coach/internal/telemetry"
)

// Verdict is the structured judgment returned by the quality checker.
type Verdict struct {
	IsValid     bool     `json:"is_valid"`
	Score       int      `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Passes reports whether the verdict is valid and reaches threshold.
func (v Verdict) Passes(threshold int) bool {
	return v.IsValid && v.Score >= threshold
}

// Band classifies a score for callers that branch on it.
type Band int

const (
	BandMajorRevision Band = iota
	BandMinorRevision
	BandMeetsBar
)

const (
	MeetsBarScore      = 80
	MinorRevisionScore = 60
)

func BandOf(score int) Band {
	switch {
	case score >= MeetsBarScore:
		return BandMeetsBar
	case score >= MinorRevisionScore:
		return BandMinorRevision
	default:
		return BandMajorRevision
	}
}

func (b Band) String() string {
	switch b {
	case BandMeetsBar:
		return "meets_bar"
	case BandMinorRevision:
		return "minor_revision"
	default:
		return "major_revision"
	}
}

// Criteria maps a check name to its description.
type Criteria map[string]any

// FailPolicy decides the verdict returned when the checker itself fails.
type FailPolicy int

const (
	// FailOpen approves with DefaultVerdict.
	FailOpen FailPolicy = iota
	// FailClosed rejects with score 0.
	FailClosed
)

func ParseFailPolicy(s string) (FailPolicy, error) {
	switch s {
	case "", "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("unknown fail policy %q", s)
	}
}

func (p FailPolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

// DefaultVerdict is returned under FailOpen.
func DefaultVerdict() Verdict {
	return Verdict{IsValid: true, Score: 70, Issues: []string{}, Suggestions: []string{}}
}

func closedVerdict() Verdict {
	return Verdict{IsValid: false, Score: 0, Issues: []string{"validator unavailable"}, Suggestions: []string{}}
}

const temperature = 0.3

var errMalformedVerdict = errors.New("malformed verdict")

// Validator sends content and a rubric to the LLM and decodes the verdict.
type Validator struct {
	client    llm.Client
	maxTokens int
	policy    FailPolicy
	collector telemetry.Collector
}

func NewValidator(client llm.Client, maxTokens int, policy FailPolicy, collector telemetry.Collector) *Validator {
	return &Validator{
		client:    client,
		maxTokens: maxTokens,
		policy:    policy,
		collector: telemetry.OrNop(collector),
	}
}

func (v *Validator) Policy() FailPolicy { return v.policy }

// Validate never returns an error: any failure yields the policy verdict.
func (v *Validator) Validate(ctx context.Context, contentType string, content any, criteria Criteria) Verdict {
	log.Printf("🔍 Validating %s content quality", contentType)

	verdict, err := v.validate(ctx, contentType, content, criteria)
	if err != nil {
		log.Printf("❌ Quality validation of %s failed (policy %s): %v", contentType, v.policy, err)
		v.collector.RecordError(telemetry.ErrorRecord{
			Source:  "quality",
			Message: err.Error(),
			Context: map[string]string{"content_type": contentType, "policy": v.policy.String()},
		})
		if v.policy == FailClosed {
			return closedVerdict()
		}
		return DefaultVerdict()
	}

	log.Printf("✅ Quality validation completed: score=%d (%s)", verdict.Score, BandOf(verdict.Score))
	return verdict
}

func (v *Validator) validate(ctx context.Context, contentType string, content any, criteria Criteria) (Verdict, error) {
	userMessage, err := buildUserMessage(contentType, content, criteria)
	if err != nil {
		return Verdict{}, err
	}

	req := llm.Request{
		Messages: []llm.Message{
			llm.System(persona.QualityCheckerInstruction(contentType)),
			llm.User(userMessage),
		},
		MaxTokens:   v.maxTokens,
		Temperature: temperature,
		JSONMode:    true,
	}

	start := time.Now()
	resp, err := v.client.Generate(ctx, req)
	rec := telemetry.APICallRecord{
		Model:       v.client.Model(),
		Agent:       "quality_checker",
		LatencyMS:   time.Since(start).Milliseconds(),
		Temperature: temperature,
	}
	if err != nil {
		rec.Error = err.Error()
		v.collector.RecordAPICall(rec)
		return Verdict{}, fmt.Errorf("quality check call: %w", err)
	}
	rec.PromptTokens = resp.Usage.PromptTokens
	rec.CompletionTokens = resp.Usage.CompletionTokens
	rec.TotalTokens = resp.Usage.TotalTokens
	v.collector.RecordAPICall(rec)

	return ParseVerdict(resp.Content)
}

func buildUserMessage(contentType string, content any, criteria Criteria) (string, error) {
	contentJSON, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	criteriaJSON, err := json.MarshalIndent(criteria, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode criteria: %w", err)
	}
	return fmt.Sprintf(`
以下のコンテンツが品質基準を満たしているかチェックしてください。

【コンテンツタイプ】
%s

【コンテンツ】
%s

【品質基準】
%s

【チェック項目】
1. 教育的適切性：ASDの子どもにとって適切な内容か
2. 言葉の適切性：理解しやすい表現になっているか
3. 一貫性：他のコンテンツとの整合性があるか
4. 安全性：不適切な表現や誤解を招く内容がないか

JSON形式で以下の構造で返してください：
{
  "is_valid": true/false,
  "score": 0-100,
  "issues": ["問題点のリスト"],
  "suggestions": ["改善提案のリスト"]
}
`, contentType, contentJSON, criteriaJSON), nil
}

type rawVerdict struct {
	IsValid     *bool     `json:"is_valid"`
	Score       *float64  `json:"score"`
	Issues      *[]string `json:"issues"`
	Suggestions *[]string `json:"suggestions"`
}

// ParseVerdict decodes a checker reply. All four fields must be present,
// the score must lie in 0..100 (fractions are rounded) and nothing may
// follow the object.
func ParseVerdict(content string) (Verdict, error) {
	var raw rawVerdict
	data := []byte(llm.ExtractJSON(content))
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", errMalformedVerdict, err)
	}
	if len(bytes.TrimSpace(data[dec.InputOffset():])) > 0 {
		return Verdict{}, fmt.Errorf("%w: trailing data after object", errMalformedVerdict)
	}
	if raw.IsValid == nil || raw.Score == nil || raw.Issues == nil || raw.Suggestions == nil {
		return Verdict{}, fmt.Errorf("%w: missing required field", errMalformedVerdict)
	}
	score := int(math.Round(*raw.Score))
	if score < 0 || score > 100 {
		return Verdict{}, fmt.Errorf("%w: score %v out of range", errMalformedVerdict, *raw.Score)
	}
	return Verdict{
		IsValid:     *raw.IsValid,
		Score:       score,
		Issues:      *raw.Issues,
		Suggestions: *raw.Suggestions,
	}, nil
}
