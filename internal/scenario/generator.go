// Package scenario is the entry point of the story screens: it serves
// scenes and parent situations from cache, generation or static templates.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"story-coach/internal/agents"
	"story-coach/internal/cache"
	"story-coach/internal/quality"
)

var ErrNoSituation = errors.New("no parent situation available")

const defaultLearningGoal = "適切な社会的行動を学ぶ"

// Coordinator is the generation side of agents.Coordinator.
type Coordinator interface {
	GenerateScenarioVariation(ctx context.Context, req agents.GenerationRequest) (*agents.Scenario, error)
	GenerateParentSituation(ctx context.Context, req agents.GenerationRequest) (*agents.ParentSituation, error)
}

type Validator interface {
	Validate(ctx context.Context, contentType string, content any, criteria quality.Criteria) quality.Verdict
}

type Options struct {
	// QualityThreshold gates generated scenes, SituationThreshold parent situations.
	QualityThreshold   int
	SituationThreshold int
	// Pick returns a number in [0, n). Defaults to math/rand.
	Pick func(n int) int
}

type Generator struct {
	templates   *TemplateStore
	coordinator Coordinator
	validator   Validator
	cache       *cache.Store
	opts        Options

	pickMu sync.Mutex
}

func NewGenerator(templates *TemplateStore, coordinator Coordinator, validator Validator, store *cache.Store, opts Options) *Generator {
	if opts.QualityThreshold <= 0 {
		opts.QualityThreshold = 80
	}
	if opts.SituationThreshold <= 0 {
		opts.SituationThreshold = 75
	}
	if opts.Pick == nil {
		opts.Pick = rand.IntN
	}
	return &Generator{
		templates:   templates,
		coordinator: coordinator,
		validator:   validator,
		cache:       store,
		opts:        opts,
	}
}

func (g *Generator) Templates() *TemplateStore { return g.templates }

func (g *Generator) scenarioCriteria() quality.Criteria {
	return quality.Criteria{
		"min_score":                   g.opts.QualityThreshold,
		"educational_appropriateness": true,
		"language_level":              "elementary_school",
		"asd_considerations":          true,
	}
}

func (g *Generator) situationCriteria() quality.Criteria {
	return quality.Criteria{
		"min_score":                   g.opts.SituationThreshold,
		"educational_appropriateness": true,
		"practical_advice":            true,
		"parent_friendly":             true,
	}
}

// LearningGoal derives the goal of a scene from its appropriate choice.
func LearningGoal(s *agents.Scenario) string {
	if hint := s.AppropriateHint(); hint != "" {
		return fmt.Sprintf("「%s」という行動を学ぶ", hint)
	}
	return defaultLearningGoal
}

// GetScene returns a scene for topic and index. With useVariation it tries
// the cache, then a validated generation, and otherwise falls back to the
// template. An error is returned only when the template itself is missing.
func (g *Generator) GetScene(ctx context.Context, topic string, index int, useVariation, forceNew bool) (*agents.Scenario, error) {
	t, ok := g.templates.Resolve(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	if useVariation && !forceNew {
		var cached agents.Scenario
		if g.cache.GetScenario(t.ID, index, &cached) {
			log.Printf("📦 Using cached scenario for %s", cache.Key(t.ID, index))
			return &cached, nil
		}
	}

	base, err := g.templates.Scene(t, index)
	if err != nil {
		log.Printf("❌ Base template not found for %s scene %d: %v", t.ID, index, err)
		return nil, err
	}
	if !useVariation {
		return base, nil
	}

	generated, err := g.coordinator.GenerateScenarioVariation(ctx, agents.GenerationRequest{
		Topic:         t.ID,
		Index:         index,
		BaseSituation: base.SituationText,
		LearningGoal:  LearningGoal(base),
	})
	if err != nil || generated == nil {
		log.Printf("⚠️ Using base template for %s: generation failed: %v", cache.Key(t.ID, index), err)
		return base, nil
	}
	generated.Image = base.Image

	verdict := g.validator.Validate(ctx, "scenario", generated, g.scenarioCriteria())
	if !verdict.Passes(g.opts.QualityThreshold) {
		log.Printf("⚠️ Generated scenario quality insufficient (score: %d), falling back to base template", verdict.Score)
		return base, nil
	}

	if err := g.cache.SaveScenario(t.ID, index, generated); err != nil {
		log.Printf("❌ Failed to cache scenario %s: %v", cache.Key(t.ID, index), err)
	}
	log.Printf("✅ Generated and cached scenario for %s (score: %d)", cache.Key(t.ID, index), verdict.Score)
	return generated, nil
}

// RandomParentSituation generates a parent situation, retrying up to
// maxAttempts times, and otherwise picks a pre-authored one at random.
// Accepted situations are cached under a fresh id.
func (g *Generator) RandomParentSituation(ctx context.Context, topic string, maxAttempts int) (*agents.ParentSituation, error) {
	t, ok := g.templates.Resolve(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	behaviors, err := g.templates.Behaviors(t)
	if err != nil {
		log.Printf("⚠️ No child behaviors for %s: %v", t.ID, err)
		return g.fallbackSituation(t)
	}
	if len(behaviors) == 0 {
		log.Printf("⚠️ No child behaviors found for %s", t.ID)
		return g.fallbackSituation(t)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		log.Printf("🔄 Generating parent situation (attempt %d/%d)", attempt, maxAttempts)
		generated, err := g.coordinator.GenerateParentSituation(ctx, agents.GenerationRequest{
			Topic:     t.Name,
			Behaviors: behaviors,
		})
		if err != nil || generated == nil {
			continue
		}

		verdict := g.validator.Validate(ctx, "parent_situation", generated, g.situationCriteria())
		if !verdict.Passes(g.opts.SituationThreshold) {
			log.Printf("⚠️ Generated situation quality insufficient (score: %d), retrying", verdict.Score)
			continue
		}

		id := uuid.NewString()
		if err := g.cache.SaveSituation(t.ID, id, generated); err != nil {
			log.Printf("❌ Failed to cache parent situation %s: %v", cache.Key(t.ID, id), err)
		}
		log.Printf("✅ Generated parent situation for %s (score: %d)", t.ID, verdict.Score)
		return generated, nil
	}

	log.Printf("⚠️ All generation attempts failed for %s, falling back to existing data", t.ID)
	return g.fallbackSituation(t)
}

func (g *Generator) fallbackSituation(t Topic) (*agents.ParentSituation, error) {
	situations, err := g.templates.Situations(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSituation, err)
	}
	if len(situations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSituation, t.ID)
	}

	g.pickMu.Lock()
	i := g.opts.Pick(len(situations))
	g.pickMu.Unlock()

	selected := situations[i]
	log.Printf("✅ Selected fallback situation from existing data for %s", t.ID)
	return &selected, nil
}

// CachedSituation returns a previously accepted parent situation.
func (g *Generator) CachedSituation(topic, id string) (*agents.ParentSituation, bool) {
	t, ok := g.templates.Resolve(topic)
	if !ok {
		return nil, false
	}
	var s agents.ParentSituation
	if !g.cache.GetSituation(t.ID, id, &s) {
		return nil, false
	}
	return &s, true
}

func (g *Generator) ClearCache() error {
	return g.cache.ClearAll()
}

func (g *Generator) PurgeExpired() (int, error) {
	return g.cache.PurgeExpired()
}

func (g *Generator) CacheStats() (cache.Stats, error) {
	return g.cache.Stats()
}
