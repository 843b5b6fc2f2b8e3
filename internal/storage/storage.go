package storage

import "time"

// APICall is one completed LLM request, streamed or not.
type APICall struct {
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Agent            string    `json:"agent"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMS        int64     `json:"latency_ms"`
	Temperature      float32   `json:"temperature"`
	Streaming        bool      `json:"streaming"`
	// Estimated is set when usage was not reported by the provider.
	Estimated bool   `json:"estimated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Evaluation is one quality check of generated content.
type Evaluation struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Score     int            `json:"score"`
	Criteria  map[string]any `json:"criteria,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// CacheEvent records a cache lookup or write.
type CacheEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Class     string    `json:"class"`
	Action    string    `json:"action"`
	Key       string    `json:"key"`
}

type ErrorEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
}

type SessionStats struct {
	TotalAPICalls         int     `json:"total_api_calls"`
	TotalPromptTokens     int     `json:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens"`
	EstimatedCostUSD      float64 `json:"estimated_cost_usd"`
	TotalEvaluations      int     `json:"total_evaluations"`
	AverageScore          float64 `json:"average_score"`
	CacheHits             int     `json:"cache_hits"`
	CacheMisses           int     `json:"cache_misses"`
	CacheHitRate          float64 `json:"cache_hit_rate"`
	Errors                int     `json:"errors"`
	DurationSeconds       float64 `json:"duration_seconds"`
}

// Session is a finished telemetry session, stored as one JSON line.
type Session struct {
	ID          string       `json:"session_id"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     time.Time    `json:"ended_at"`
	APICalls    []APICall    `json:"api_calls"`
	Evaluations []Evaluation `json:"evaluations"`
	CacheEvents []CacheEvent `json:"cache_events"`
	Errors      []ErrorEvent `json:"errors"`
	Stats       SessionStats `json:"statistics"`
}

// Recorder abstracts persistence of telemetry sessions.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendSession(s Session) error
	LoadSessions(day time.Time) ([]Session, error)
}
