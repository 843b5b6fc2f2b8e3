package agents

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Evaluation: педагогическая оценка варианта действия.
type Evaluation string

const (
	Appropriate   Evaluation = "appropriate"
	Acceptable    Evaluation = "acceptable"
	Inappropriate Evaluation = "inappropriate"
)

// Evaluations lists every label in display order.
var Evaluations = []Evaluation{Appropriate, Acceptable, Inappropriate}

var ErrInvalidChoices = errors.New("invalid choices")

func ParseEvaluation(s string) (Evaluation, error) {
	switch e := Evaluation(s); e {
	case Appropriate, Acceptable, Inappropriate:
		return e, nil
	default:
		return "", fmt.Errorf("unknown evaluation label %q", s)
	}
}

func (e *Evaluation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEvaluation(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Choice is one labeled option. Generated scenes name the hint "hint",
// event templates "ai_feedback_hint" and parent guides "ai_hint"; all three
// are accepted on decode.
type Choice struct {
	Text       string     `json:"text"`
	Evaluation Evaluation `json:"evaluation"`
	Hint       string     `json:"hint,omitempty"`
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text           string     `json:"text"`
		Evaluation     Evaluation `json:"evaluation"`
		Hint           string     `json:"hint"`
		AIFeedbackHint string     `json:"ai_feedback_hint"`
		AIHint         string     `json:"ai_hint"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Text = raw.Text
	c.Evaluation = raw.Evaluation
	switch {
	case raw.Hint != "":
		c.Hint = raw.Hint
	case raw.AIFeedbackHint != "":
		c.Hint = raw.AIFeedbackHint
	default:
		c.Hint = raw.AIHint
	}
	return nil
}

// ValidateChoices enforces exactly three choices, one per label.
func ValidateChoices(choices []Choice) error {
	if len(choices) != len(Evaluations) {
		return fmt.Errorf("%w: want %d choices, got %d", ErrInvalidChoices, len(Evaluations), len(choices))
	}
	seen := make(map[Evaluation]bool, len(choices))
	for i, c := range choices {
		if _, err := ParseEvaluation(string(c.Evaluation)); err != nil {
			return fmt.Errorf("%w: choice %d: %v", ErrInvalidChoices, i, err)
		}
		if seen[c.Evaluation] {
			return fmt.Errorf("%w: duplicate label %s", ErrInvalidChoices, c.Evaluation)
		}
		if c.Text == "" {
			return fmt.Errorf("%w: choice %d has no text", ErrInvalidChoices, i)
		}
		seen[c.Evaluation] = true
	}
	return nil
}

// Scenario is one story scene, either from a template or generated.
type Scenario struct {
	SituationText string   `json:"situation_text"`
	Image         string   `json:"image,omitempty"`
	Choices       []Choice `json:"choices"`
	Generated     bool     `json:"generated,omitempty"`
}

// AppropriateHint returns the hint of the appropriate choice, if any.
func (s *Scenario) AppropriateHint() string {
	for _, c := range s.Choices {
		if c.Evaluation == Appropriate {
			return c.Hint
		}
	}
	return ""
}

func (s *Scenario) Validate() error {
	if s.SituationText == "" {
		return fmt.Errorf("%w: empty situation text", ErrInvalidChoices)
	}
	return ValidateChoices(s.Choices)
}

// ParentSituation is a practice situation for parents.
type ParentSituation struct {
	Event         string   `json:"event"`
	ChildAction   string   `json:"child_action"`
	ParentActions []Choice `json:"parent_actions"`
	Generated     bool     `json:"generated,omitempty"`
}

func (p *ParentSituation) Validate() error {
	if p.ChildAction == "" {
		return fmt.Errorf("%w: empty child action", ErrInvalidChoices)
	}
	return ValidateChoices(p.ParentActions)
}
