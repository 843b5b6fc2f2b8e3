package experts

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"
	"time"

	"story-coach/internal/llm"
	"story-coach/internal/persona"
	"story-coach/internal/telemetry"
	"story-coach/internal/tokens"
)

// streamCall describes one streamed completion. A non-nil persona makes the
// finished answer go through the quality validator; check, when set, scores
// any other kind of answer.
type streamCall struct {
	agent       string
	system      string
	user        string
	maxTokens   int
	temperature float32

	persona  *persona.Persona
	question string
	check    func(ctx context.Context, response string)
}

// streamText forwards every non-empty delta of one completion to yield.
// stopped reports that the consumer quit early. Finalization runs on every
// exit path.
func (s *Service) streamText(ctx context.Context, call streamCall, yield func(string) bool) (stopped bool, err error) {
	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var (
		collected strings.Builder
		usage     *llm.Usage
	)
	defer func() {
		s.finalize(ctx, call, collected.String(), usage, time.Since(start), err)
	}()

	stream, err := s.client.Stream(sctx, llm.Request{
		Messages:    []llm.Message{llm.System(call.system), llm.User(call.user)},
		MaxTokens:   call.maxTokens,
		Temperature: call.temperature,
	})
	if err != nil {
		return false, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	for stream.Next() {
		delta := stream.Current()
		if delta.Usage != nil {
			u := *delta.Usage
			usage = &u
		}
		if delta.Text == "" {
			continue
		}
		collected.WriteString(delta.Text)
		if !yield(delta.Text) {
			return true, nil
		}
	}
	if err := stream.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// finalize records the call and, for persona answers, its quality. It never
// panics or returns an error.
func (s *Service) finalize(ctx context.Context, call streamCall, response string, usage *llm.Usage, latency time.Duration, streamErr error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Error finalizing %s: %v", call.agent, r)
		}
	}()

	rec := telemetry.APICallRecord{
		Model:       s.client.Model(),
		Agent:       call.agent,
		LatencyMS:   latency.Milliseconds(),
		Temperature: call.temperature,
		Streaming:   true,
	}
	if usage != nil {
		rec.PromptTokens = usage.PromptTokens
		rec.CompletionTokens = usage.CompletionTokens
		rec.TotalTokens = usage.TotalTokens
		if rec.TotalTokens == 0 {
			rec.TotalTokens = rec.PromptTokens + rec.CompletionTokens
		}
	} else {
		est := s.estimate(call, response)
		rec.PromptTokens = est.PromptTokens
		rec.CompletionTokens = est.CompletionTokens
		rec.TotalTokens = est.Total()
		rec.Estimated = true
	}
	if streamErr != nil {
		rec.Error = streamErr.Error()
	}
	s.collector.RecordAPICall(rec)

	if response == "" || (call.persona == nil && call.check == nil) {
		return
	}
	// the consumer may already have cancelled ctx
	vctx, cancel := s.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if call.persona != nil {
		s.evaluate(vctx, *call.persona, call.question, response, expertCriteria(true))
		return
	}
	call.check(vctx, response)
}

func (s *Service) estimate(call streamCall, response string) tokens.Estimate {
	if s.counter == nil {
		return tokens.Fallback(call.user, response)
	}
	est, err := tokens.EstimateStreaming(s.counter, call.user, response, call.system)
	if err != nil {
		log.Printf("❌ Token estimation failed for %s: %v", call.agent, err)
		return tokens.Fallback(call.user, response)
	}
	return est
}

// SingleExpertStream streams one expert's answer. An unknown persona or any
// Gateway failure yields a single diagnostic chunk.
func (s *Service) SingleExpertStream(ctx context.Context, id persona.ID, question, background string, tone Tone) iter.Seq[string] {
	return func(yield func(string) bool) {
		p, ok := s.registry.Get(id)
		if !ok {
			log.Printf("❌ Invalid persona id: %s", id)
			yield(msgUnknownPersona)
			return
		}

		call := streamCall{
			agent:       "expert_stream_" + string(p.ID),
			system:      p.Instruction,
			user:        expertStreamMessage(p, question, background, tone),
			maxTokens:   s.opts.MaxTokens * 2,
			temperature: tone.Temperature(),
			persona:     &p,
			question:    question,
		}
		if _, err := s.streamText(ctx, call, yield); err != nil {
			log.Printf("❌ Error in single expert stream (%s): %v", p.ID, err)
			s.recordFailure("expert_stream", err, map[string]string{"persona": string(p.ID)})
			yield(diagnostic(err))
		}
	}
}

// SequentialExpertsStream lets every expert answer in registry order. Each
// answer is framed by StartMarker and EndMarker and fully emitted before the
// next expert starts.
func (s *Service) SequentialExpertsStream(ctx context.Context, question, background string, tone Tone) iter.Seq[ExpertChunk] {
	return func(yield func(ExpertChunk) bool) {
		for _, p := range s.registry.List() {
			log.Printf("🔄 Streaming response from %s", p.ID)
			if !yield(chunkOf(p, StartMarker)) {
				return
			}

			call := streamCall{
				agent:       "sequential_" + string(p.ID),
				system:      p.Instruction,
				user:        sequentialMessage(p, question, background, tone),
				maxTokens:   s.opts.MaxTokens * 2,
				temperature: tone.Temperature(),
				persona:     &p,
				question:    question,
			}
			stopped, err := s.streamText(ctx, call, func(text string) bool {
				return yield(chunkOf(p, text))
			})
			if stopped {
				return
			}
			if err != nil {
				log.Printf("❌ Error in sequential experts stream (%s): %v", p.ID, err)
				s.recordFailure("sequential_stream", err, map[string]string{"persona": string(p.ID)})
				yield(errorChunk)
				return
			}

			if !yield(chunkOf(p, EndMarker)) {
				return
			}
		}
	}
}

// ComprehensiveResponseStream collects a full answer from every expert, then
// streams one synthesized answer. It is the slowest and most expensive mode.
func (s *Service) ComprehensiveResponseStream(ctx context.Context, question, background string, tone Tone) iter.Seq[string] {
	return func(yield func(string) bool) {
		opinions := s.collectOpinions(ctx, question, background, s.registry.IDs())

		call := streamCall{
			agent:       "comprehensive_synthesis",
			system:      persona.SynthesizerInstruction,
			user:        synthesisStreamMessage(question, background, opinions, tone),
			maxTokens:   s.opts.MaxTokens * 4,
			temperature: tone.Temperature(),
		}
		if _, err := s.streamText(ctx, call, yield); err != nil {
			log.Printf("❌ Error in comprehensive response stream: %v", err)
			s.recordFailure("comprehensive_stream", err, nil)
			yield(diagnostic(err))
		}
	}
}

// QuickResponseStream streams one answer of the composite expert. It is not
// attributed to a persona and is not quality checked.
func (s *Service) QuickResponseStream(ctx context.Context, question, background string, tone Tone) iter.Seq[string] {
	return func(yield func(string) bool) {
		call := streamCall{
			agent:       "quick_response",
			system:      persona.QuickInstruction(tone),
			user:        quickMessage(question, background),
			maxTokens:   s.opts.MaxTokens * 2,
			temperature: tone.Temperature(),
		}
		if _, err := s.streamText(ctx, call, yield); err != nil {
			log.Printf("❌ Error in quick response stream: %v", err)
			s.recordFailure("quick_response", err, nil)
			yield(diagnostic(err))
		}
	}
}
