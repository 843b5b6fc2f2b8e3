package telemetry

import (
	"story-coach/internal/storage"
)

type (
	APICallRecord    = storage.APICall
	EvaluationRecord = storage.Evaluation
	CacheRecord      = storage.CacheEvent
	ErrorRecord      = storage.ErrorEvent
)

// Cache actions.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheWrite   = "write"
	CacheExpired = "expired"
)

// Collector receives write-only telemetry from the core. Implementations
// must not block and must be safe for concurrent use.
type Collector interface {
	RecordAPICall(rec APICallRecord)
	RecordEvaluation(rec EvaluationRecord)
	RecordCache(rec CacheRecord)
	RecordError(rec ErrorRecord)
}

type Nop struct{}

func (Nop) RecordAPICall(APICallRecord)       {}
func (Nop) RecordEvaluation(EvaluationRecord) {}
func (Nop) RecordCache(CacheRecord)           {}
func (Nop) RecordError(ErrorRecord)           {}

// OrNop returns c, or a Nop collector when c is nil.
func OrNop(c Collector) Collector {
	if c == nil {
		return Nop{}
	}
	return c
}
