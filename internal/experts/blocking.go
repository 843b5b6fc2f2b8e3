package experts

import (
	"context"
	"log"

	"story-coach/internal/persona"
)

// ExpertResponse returns one expert's sectioned answer. ok is false for an
// unknown persona or a failed call.
func (s *Service) ExpertResponse(ctx context.Context, id persona.ID, question, background string) (string, bool) {
	p, found := s.registry.Get(id)
	if !found {
		log.Printf("❌ Invalid persona id: %s", id)
		return "", false
	}

	answer, err := s.generate(ctx, "expert_"+string(p.ID), p.Instruction,
		expertReportMessage(p, question, background), s.opts.MaxTokens*3)
	if err != nil {
		log.Printf("❌ Error generating expert response from %s: %v", p.ID, err)
		s.recordFailure("expert_response", err, map[string]string{"persona": string(p.ID)})
		return "", false
	}

	s.evaluate(ctx, p, question, answer, expertCriteria(false))
	return answer, true
}

// collectOpinions asks each expert in order and keeps the answers that came back.
func (s *Service) collectOpinions(ctx context.Context, question, background string, ids []persona.ID) []Opinion {
	opinions := make([]Opinion, 0, len(ids))
	for _, id := range ids {
		log.Printf("🔄 Generating response from %s", id)
		answer, ok := s.ExpertResponse(ctx, id, question, background)
		if !ok {
			continue
		}
		p, _ := s.registry.Get(id)
		opinions = append(opinions, Opinion{Persona: p, Response: answer})
	}
	return opinions
}

// TeamAnswer is the result of ComprehensiveResponse.
type TeamAnswer struct {
	Individual  []Opinion `json:"individual_responses"`
	Synthesized string    `json:"synthesized_response"`
}

// ComprehensiveResponse asks the given experts (all when ids is empty) and
// merges their answers with one blocking synthesis call.
func (s *Service) ComprehensiveResponse(ctx context.Context, question, background string, ids []persona.ID) TeamAnswer {
	if len(ids) == 0 {
		ids = s.registry.IDs()
	}
	opinions := s.collectOpinions(ctx, question, background, ids)

	synthesized, err := s.generate(ctx, "synthesizer", persona.SynthesizerInstruction,
		synthesisReportMessage(s.registry, question, background, opinions), s.opts.MaxTokens*4)
	if err != nil {
		log.Printf("❌ Error synthesizing responses: %v", err)
		s.recordFailure("synthesizer", err, nil)
		synthesized = msgSynthesisFailed
	}
	return TeamAnswer{Individual: opinions, Synthesized: synthesized}
}
