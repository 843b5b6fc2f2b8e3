// Package history keeps the parent's question and answer exchanges of one
// session so follow-up questions can carry them as background.
package history

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"story-coach/internal/llm"
)

// Conversation is one answered question.
type Conversation struct {
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"ai_mode"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	TopicTags []string  `json:"topic_tags,omitempty"`
}

type entry struct {
	conv Conversation
	used bool
}

// Manager holds conversations per session id. It is an explicit object
// owned by the caller, never a package global.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string][]entry
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string][]entry), now: time.Now}
}

func (m *Manager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// DisableAll keeps the conversations but drops them from the context.
func (m *Manager) DisableAll(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.sessions[sessionID]
	for i := range entries {
		entries[i].used = false
	}
	m.sessions[sessionID] = entries
}

func (m *Manager) Append(sessionID, mode, question, answer string, tags ...string) Conversation {
	conv := Conversation{
		Timestamp: m.now(),
		Mode:      mode,
		Question:  question,
		Answer:    answer,
		TopicTags: append([]string(nil), tags...),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], entry{conv: conv, used: true})
	return conv
}

// Get returns only conversations that are still used in context.
func (m *Manager) Get(sessionID string) []Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Conversation
	for _, e := range m.sessions[sessionID] {
		if e.used {
			out = append(out, e.conv)
		}
	}
	return out
}

func (m *Manager) GetAll(sessionID string) []Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	es := m.sessions[sessionID]
	out := make([]Conversation, 0, len(es))
	for _, e := range es {
		out = append(out, e.conv)
	}
	return out
}

// Messages renders the used conversations as alternating user and
// assistant turns.
func (m *Manager) Messages(sessionID string) []llm.Message {
	convs := m.Get(sessionID)
	out := make([]llm.Message, 0, len(convs)*2)
	for _, c := range convs {
		out = append(out, llm.User(c.Question), llm.Message{Role: llm.RoleAssistant, Content: c.Answer})
	}
	return out
}

// Background joins the last limit used conversations and extra into the
// background text of the next question. limit <= 0 means all.
func (m *Manager) Background(sessionID, extra string, limit int) string {
	convs := m.Get(sessionID)
	if limit > 0 && len(convs) > limit {
		convs = convs[len(convs)-limit:]
	}

	var b strings.Builder
	if extra != "" {
		b.WriteString(extra)
	}
	for _, c := range convs {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "前回の質問: %s\n前回の回答: %s", c.Question, c.Answer)
	}
	return b.String()
}
