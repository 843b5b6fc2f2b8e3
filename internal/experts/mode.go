package experts

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"story-coach/internal/persona"
)

// Mode selects one of the response modes.
type Mode string

const (
	ModeQuick         Mode = "quick"
	ModeExpert        Mode = "expert"
	ModeSequential    Mode = "sequential"
	ModeComprehensive Mode = "comprehensive"
)

var Modes = []Mode{ModeQuick, ModeExpert, ModeSequential, ModeComprehensive}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown response mode %q", s)
}

// Ask is a request in any mode. Persona is used only by ModeExpert.
type Ask struct {
	Mode       Mode
	Persona    persona.ID
	Question   string
	Background string
	Tone       Tone
}

// TextStream flattens the chosen mode into plain text. Sequential answers are
// rendered with an "icon name" heading per expert instead of the markers.
func (s *Service) TextStream(ctx context.Context, a Ask) iter.Seq[string] {
	switch a.Mode {
	case ModeExpert:
		return s.SingleExpertStream(ctx, a.Persona, a.Question, a.Background, a.Tone)
	case ModeSequential:
		return func(yield func(string) bool) {
			for c := range s.SequentialExpertsStream(ctx, a.Question, a.Background, a.Tone) {
				var text string
				switch c.Chunk {
				case StartMarker:
					text = fmt.Sprintf("\n◆ %s %s\n", c.PersonaIcon, c.PersonaName)
				case EndMarker:
					text = "\n"
				default:
					text = c.Chunk
				}
				if !yield(text) {
					return
				}
			}
		}
	case ModeComprehensive:
		return s.ComprehensiveResponseStream(ctx, a.Question, a.Background, a.Tone)
	default:
		return s.QuickResponseStream(ctx, a.Question, a.Background, a.Tone)
	}
}

// Collect drains a text stream into one string.
func Collect(seq iter.Seq[string]) string {
	var b strings.Builder
	for chunk := range seq {
		b.WriteString(chunk)
	}
	return b.String()
}
