package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"story-coach/internal/agents"
)

var (
	ErrUnknownTopic     = errors.New("unknown topic")
	ErrTemplateNotFound = errors.New("template not found")
)

// Topic is one event the stories are built around. Name is the display
// name shown to children; ID is used in files and cache keys.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

var DefaultTopics = []Topic{
	{ID: "toilet", Name: "トイレ", File: "toilet.json"},
	{ID: "barber", Name: "床屋", File: "barber.json"},
	{ID: "hospital", Name: "病院", File: "hospital.json"},
	{ID: "park", Name: "公園", File: "park.json"},
	{ID: "morning_routine", Name: "朝のルーティン", File: "morning_routine.json"},
}

type templateScene struct {
	SceneNumber int             `json:"scene_number"`
	Text        string          `json:"text"`
	Image       string          `json:"image"`
	Sound       string          `json:"sound,omitempty"`
	Choices     []agents.Choice `json:"choices"`
}

type eventFile struct {
	EventName   string          `json:"event_name"`
	Description string          `json:"description"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Scenes      []templateScene `json:"scenes"`
}

type guideFile struct {
	SituationGuides []agents.ParentSituation `json:"situation_guides"`
}

// TemplateStore reads the pre-authored event files and parent guide. Files
// are read once and kept.
type TemplateStore struct {
	eventsDir string
	guidePath string
	topics    []Topic

	mu     sync.Mutex
	events map[string]*eventFile
	guide  *guideFile
}

func NewTemplateStore(eventsDir, guidePath string, topics ...Topic) *TemplateStore {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &TemplateStore{
		eventsDir: eventsDir,
		guidePath: guidePath,
		topics:    topics,
		events:    make(map[string]*eventFile),
	}
}

func (s *TemplateStore) Topics() []Topic {
	return append([]Topic(nil), s.topics...)
}

// Resolve finds a topic by id or display name.
func (s *TemplateStore) Resolve(idOrName string) (Topic, bool) {
	for _, t := range s.topics {
		if t.ID == idOrName || t.Name == idOrName {
			return t, true
		}
	}
	return Topic{}, false
}

func (s *TemplateStore) event(t Topic) (*eventFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev, ok := s.events[t.ID]; ok {
		return ev, nil
	}
	path := filepath.Join(s.eventsDir, t.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateNotFound, path, err)
	}
	var ev eventFile
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	s.events[t.ID] = &ev
	return &ev, nil
}

// Scene returns the template scene with the given scene number.
func (s *TemplateStore) Scene(t Topic, index int) (*agents.Scenario, error) {
	ev, err := s.event(t)
	if err != nil {
		return nil, err
	}
	for _, sc := range ev.Scenes {
		if sc.SceneNumber == index {
			return &agents.Scenario{
				SituationText: sc.Text,
				Image:         sc.Image,
				Choices:       append([]agents.Choice(nil), sc.Choices...),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s scene %d", ErrTemplateNotFound, t.ID, index)
}

// SceneCount returns the number of scenes of a topic.
func (s *TemplateStore) SceneCount(t Topic) (int, error) {
	ev, err := s.event(t)
	if err != nil {
		return 0, err
	}
	return len(ev.Scenes), nil
}

// Behaviors collects every choice text of every scene of a topic.
func (s *TemplateStore) Behaviors(t Topic) ([]string, error) {
	ev, err := s.event(t)
	if err != nil {
		return nil, err
	}
	var behaviors []string
	for _, sc := range ev.Scenes {
		for _, c := range sc.Choices {
			behaviors = append(behaviors, c.Text)
		}
	}
	return behaviors, nil
}

func (s *TemplateStore) loadGuide() (*guideFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guide != nil {
		return s.guide, nil
	}
	data, err := os.ReadFile(s.guidePath)
	if err != nil {
		return nil, fmt.Errorf("read parent guide: %w", err)
	}
	var g guideFile
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode parent guide: %w", err)
	}
	s.guide = &g
	return s.guide, nil
}

// Situations returns the pre-authored parent situations of a topic. Guide
// entries may name the event by id or display name.
func (s *TemplateStore) Situations(t Topic) ([]agents.ParentSituation, error) {
	g, err := s.loadGuide()
	if err != nil {
		log.Printf("⚠️ Parent guide unavailable: %v", err)
		return nil, err
	}
	var out []agents.ParentSituation
	for _, sit := range g.SituationGuides {
		if sit.Event == t.ID || sit.Event == t.Name {
			out = append(out, sit)
		}
	}
	return out, nil
}
