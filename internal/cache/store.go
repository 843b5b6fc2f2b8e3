package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"story-coach/internal/telemetry"
)

const (
	DefaultExpiry  = 24 * time.Hour
	DefaultMaxSize = 100
)

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	Enabled bool
	Expiry  time.Duration
	MaxSize int
	Now     func() time.Time
}

// Store is the two-tier expiring cache for generated artifacts. Writes go to
// both tiers; the memory tier is filled lazily on disk hits.
type Store struct {
	memory    *MemoryTier
	disk      DiskTier
	opts      Options
	collector telemetry.Collector
}

func NewStore(memory *MemoryTier, disk DiskTier, opts Options, collector telemetry.Collector) *Store {
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		memory:    memory,
		disk:      disk,
		opts:      opts,
		collector: telemetry.OrNop(collector),
	}
}

func (s *Store) Enabled() bool { return s.opts.Enabled }

func (s *Store) record(class Class, action, key string) {
	s.collector.RecordCache(telemetry.CacheRecord{
		Timestamp: s.opts.Now(),
		Class:     string(class),
		Action:    action,
		Key:       key,
	})
}

// Get returns the raw content under key when a valid entry exists. An
// expired entry found on disk is removed from both tiers.
func (s *Store) Get(class Class, key string) (json.RawMessage, bool) {
	if !s.opts.Enabled {
		return nil, false
	}
	now := s.opts.Now()

	if e, ok := s.memory.Get(class, key); ok {
		if e.Valid(now) {
			s.record(class, telemetry.CacheHit, key)
			return e.Content, true
		}
		s.memory.Remove(class, key)
	}

	var (
		found   Entry
		hit     bool
		expired bool
	)
	err := s.disk.Update(class, func(entries map[string]Entry) bool {
		e, ok := entries[key]
		if !ok {
			return false
		}
		if e.Valid(now) {
			found, hit = e, true
			return false
		}
		delete(entries, key)
		expired = true
		return true
	})
	if err != nil {
		log.Printf("❌ Cache read failed for %s %s: %v", class, key, err)
		s.record(class, telemetry.CacheMiss, key)
		return nil, false
	}

	switch {
	case hit:
		s.memory.Put(class, key, found)
		s.record(class, telemetry.CacheHit, key)
		return found.Content, true
	case expired:
		log.Printf("🔄 Cache entry %s %s expired, removed", class, key)
		s.record(class, telemetry.CacheExpired, key)
	default:
		s.record(class, telemetry.CacheMiss, key)
	}
	return nil, false
}

// Put stores content under key in both tiers and trims the disk mapping of
// the class to MaxSize newest entries.
func (s *Store) Put(class Class, key string, content any) error {
	if !s.opts.Enabled {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode cache content: %w", err)
	}
	now := s.opts.Now()
	entry := Entry{
		Content:   compact(raw),
		Timestamp: now,
		Expiry:    now.Add(s.opts.Expiry),
	}

	var evicted []string
	err = s.disk.Update(class, func(entries map[string]Entry) bool {
		entries[key] = entry
		evicted = evictOldest(entries, s.opts.MaxSize)
		return true
	})
	if err != nil {
		return fmt.Errorf("save %s cache: %w", class, err)
	}

	s.memory.Put(class, key, entry)
	for _, k := range evicted {
		s.memory.Remove(class, k)
	}
	if len(evicted) > 0 {
		log.Printf("📦 Evicted %d old %s cache entries", len(evicted), class)
	}
	s.record(class, telemetry.CacheWrite, key)
	return nil
}

func (s *Store) getInto(class Class, key string, v any) bool {
	raw, ok := s.Get(class, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("⚠️ Cached %s %s is unreadable: %v", class, key, err)
		return false
	}
	return true
}

// GetScenario decodes the cached scenario variation for topic and index into v.
func (s *Store) GetScenario(topic string, index int, v any) bool {
	return s.getInto(Scenario, Key(topic, index), v)
}

func (s *Store) SaveScenario(topic string, index int, content any) error {
	return s.Put(Scenario, Key(topic, index), content)
}

func (s *Store) GetSituation(topic, id string, v any) bool {
	return s.getInto(Situation, Key(topic, id), v)
}

func (s *Store) SaveSituation(topic, id string, content any) error {
	return s.Put(Situation, Key(topic, id), content)
}

// ClearAll empties both tiers of every class.
func (s *Store) ClearAll() error {
	s.memory.Purge()
	for _, class := range Classes {
		if err := s.disk.Clear(class); err != nil {
			return err
		}
	}
	log.Printf("✅ Cache cleared")
	return nil
}

// PurgeExpired removes every expired entry from both tiers and reports how
// many disk entries were dropped.
func (s *Store) PurgeExpired() (int, error) {
	now := s.opts.Now()
	s.memory.PurgeExpired(func(e Entry) bool { return e.Valid(now) })

	total := 0
	for _, class := range Classes {
		removed := 0
		err := s.disk.Update(class, func(entries map[string]Entry) bool {
			for k, e := range entries {
				if !e.Valid(now) {
					delete(entries, k)
					removed++
				}
			}
			return removed > 0
		})
		if err != nil {
			return total, fmt.Errorf("purge %s cache: %w", class, err)
		}
		total += removed
	}
	if total > 0 {
		log.Printf("🔄 Purged %d expired cache entries", total)
	}
	return total, nil
}

type Stats struct {
	MemoryCacheSize    int  `json:"memory_cache_size"`
	ScenarioCacheSize  int  `json:"scenario_cache_size"`
	SituationCacheSize int  `json:"situation_cache_size"`
	CacheEnabled       bool `json:"cache_enabled"`
	CacheExpiryHours   int  `json:"cache_expiry_hours"`
	MaxCacheSize       int  `json:"max_cache_size"`
}

func (s *Store) Stats() (Stats, error) {
	st := Stats{
		MemoryCacheSize:  s.memory.Len(),
		CacheEnabled:     s.opts.Enabled,
		CacheExpiryHours: int(s.opts.Expiry / time.Hour),
		MaxCacheSize:     s.opts.MaxSize,
	}
	scenarios, err := s.disk.Load(Scenario)
	if err != nil {
		return st, err
	}
	situations, err := s.disk.Load(Situation)
	if err != nil {
		return st, err
	}
	st.ScenarioCacheSize = len(scenarios)
	st.SituationCacheSize = len(situations)
	return st, nil
}

func (s *Store) Close() error { return s.disk.Close() }
