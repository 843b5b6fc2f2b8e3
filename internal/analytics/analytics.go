package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"story-coach/internal/storage"
)

// DailyStats содержит статистику за день
type DailyStats struct {
	Date                  string                `json:"date"`
	Sessions              int                   `json:"sessions"`
	TotalAPICalls         int                   `json:"total_api_calls"`
	StreamingCalls        int                   `json:"streaming_calls"`
	EstimatedUsageCalls   int                   `json:"estimated_usage_calls"`
	FailedCalls           int                   `json:"failed_calls"`
	TotalPromptTokens     int                   `json:"total_prompt_tokens"`
	TotalCompletionTokens int                   `json:"total_completion_tokens"`
	TotalTokens           int                   `json:"total_tokens"`
	EstimatedCostUSD      float64               `json:"estimated_cost_usd"`
	Evaluations           int                   `json:"evaluations"`
	AverageScore          float64               `json:"average_score"`
	LowScores             int                   `json:"low_scores"`
	CacheHits             int                   `json:"cache_hits"`
	CacheMisses           int                   `json:"cache_misses"`
	CacheHitRate          float64               `json:"cache_hit_rate"`
	Errors                int                   `json:"errors"`
	AgentStats            map[string]AgentStats `json:"agent_stats"`
}

// AgentStats содержит статистику по агенту
type AgentStats struct {
	Agent        string  `json:"agent"`
	Calls        int     `json:"calls"`
	Tokens       int     `json:"tokens"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`

	latencySum int64
}

const lowScore = 60

// AnalyzeDailySessions aggregates the sessions that started on targetDate.
// Cost is taken from the per-session totals.
func AnalyzeDailySessions(sessions []storage.Session, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		AgentStats: make(map[string]AgentStats),
	}

	scoreSum := 0
	for _, s := range sessions {
		if s.StartedAt.Before(startOfDay) || !s.StartedAt.Before(endOfDay) {
			continue
		}
		stats.Sessions++
		stats.EstimatedCostUSD += s.Stats.EstimatedCostUSD
		stats.Errors += len(s.Errors)

		for _, c := range s.APICalls {
			stats.TotalAPICalls++
			stats.TotalPromptTokens += c.PromptTokens
			stats.TotalCompletionTokens += c.CompletionTokens
			stats.TotalTokens += c.TotalTokens
			if c.Streaming {
				stats.StreamingCalls++
			}
			if c.Estimated {
				stats.EstimatedUsageCalls++
			}
			if c.Error != "" {
				stats.FailedCalls++
			}

			a, ok := stats.AgentStats[c.Agent]
			if !ok {
				a = AgentStats{Agent: c.Agent}
			}
			a.Calls++
			a.Tokens += c.TotalTokens
			a.latencySum += c.LatencyMS
			a.AvgLatencyMS = float64(a.latencySum) / float64(a.Calls)
			stats.AgentStats[c.Agent] = a
		}

		for _, e := range s.Evaluations {
			stats.Evaluations++
			scoreSum += e.Score
			if e.Score < lowScore {
				stats.LowScores++
			}
		}

		for _, c := range s.CacheEvents {
			switch c.Action {
			case "hit":
				stats.CacheHits++
			case "miss", "expired":
				stats.CacheMisses++
			}
		}
	}

	if stats.Evaluations > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.Evaluations)
	}
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(lookups)
	}
	return stats
}

// GenerateReportSummary создает текстовое резюме отчета
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, `Usage report for %s:

Activity:
- Sessions: %d
- API calls: %d (streaming %d, estimated usage %d, failed %d)
- Tokens: %d (prompt %d, completion %d)
- Estimated cost: $%.6f

Quality:
- Evaluations: %d, average score %.1f, below %d: %d

Cache:
- Hits: %d, misses: %d, hit rate %.0f%%

Errors: %d

`, ds.Date, ds.Sessions,
		ds.TotalAPICalls, ds.StreamingCalls, ds.EstimatedUsageCalls, ds.FailedCalls,
		ds.TotalTokens, ds.TotalPromptTokens, ds.TotalCompletionTokens,
		ds.EstimatedCostUSD,
		ds.Evaluations, ds.AverageScore, lowScore, ds.LowScores,
		ds.CacheHits, ds.CacheMisses, ds.CacheHitRate*100,
		ds.Errors)

	if len(ds.AgentStats) > 0 {
		agents := make([]string, 0, len(ds.AgentStats))
		for name := range ds.AgentStats {
			agents = append(agents, name)
		}
		sort.Strings(agents)

		b.WriteString("Agents:\n")
		for _, name := range agents {
			a := ds.AgentStats[name]
			fmt.Fprintf(&b, "- %s: %d calls, %d tokens, avg %.0f ms\n", name, a.Calls, a.Tokens, a.AvgLatencyMS)
		}
	}
	return b.String()
}

// ToJSON сериализует статистику в JSON для детального анализа
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
