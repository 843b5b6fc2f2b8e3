package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-coach/internal/config"
	"story-coach/internal/llm/llmtest"
	"story-coach/internal/scenario"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LLMProvider:              config.ProviderOpenAI,
		MaxTokens:                100,
		EventsDir:                filepath.Join("..", "..", "data", "events"),
		ParentGuidePath:          filepath.Join("..", "..", "data", "parent_guide_data.json"),
		UseAIGeneration:          true,
		AIGenerationMaxAttempts:  2,
		AIQualityThreshold:       80,
		ParentSituationThreshold: 75,
		ValidatorFailPolicy:      "open",
		EnableScenarioCache:      true,
		CacheExpiryHours:         24,
		MaxCacheSize:             10,
		CacheDir:                 filepath.Join(dir, "cache"),
		CacheBackend:             config.CacheBackendJSON,
		MemoryCacheSize:          16,
		CachePurgeSchedule:       "@hourly",
		StreamTimeout:            time.Second,
		DebugLogDir:              filepath.Join(dir, "debug"),
		DebugLogAlways:           true,
	}
}

func TestNew_GatewayDownFallsBackToBundledData(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, &llmtest.Fake{})
	require.NoError(t, err)

	scene, err := a.Generator.GetScene(context.Background(), "toilet", 0, true, false)
	require.NoError(t, err)
	assert.Equal(t, "images/toilet_0.png", scene.Image)
	assert.False(t, scene.Generated)
	require.NoError(t, scene.Validate())

	situation, err := a.Generator.RandomParentSituation(context.Background(), "公園", a.SituationAttempts(0))
	require.NoError(t, err)
	assert.Equal(t, "公園", situation.Event)

	stats, err := a.Generator.CacheStats()
	require.NoError(t, err)
	assert.Zero(t, stats.ScenarioCacheSize)

	require.NoError(t, a.Close())
	entries, err := os.ReadDir(cfg.DebugLogDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNew_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = config.CacheBackendSQLite
	a, err := New(cfg, &llmtest.Fake{})
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(filepath.Join(cfg.CacheDir, "cache.db"))
	assert.NoError(t, err)
}

func TestNew_RejectsUnknownFailPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.ValidatorFailPolicy = "sometimes"
	_, err := New(cfg, &llmtest.Fake{})
	assert.Error(t, err)
}

func TestSituationAttempts(t *testing.T) {
	a := &App{Config: testConfig(t)}
	assert.Equal(t, 2, a.SituationAttempts(0))
	assert.Equal(t, 5, a.SituationAttempts(5))

	a.Config.UseAIGeneration = false
	assert.Equal(t, 0, a.SituationAttempts(5))
}

func TestScheduler(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReportSchedule = "0 21 * * *"
	a, err := New(cfg, &llmtest.Fake{})
	require.NoError(t, err)
	defer a.Close()

	s := a.Scheduler()
	require.NoError(t, s.Start())
	assert.Equal(t, 2, s.Jobs())
	s.Stop()
}

func TestReport(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, &llmtest.Fake{})
	require.NoError(t, err)

	_, err = a.Generator.GetScene(context.Background(), "park", 0, true, false)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(cfg, &llmtest.Fake{})
	require.NoError(t, err)
	defer b.Close()

	report, err := b.Report(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, 1, report.CacheMisses)
}

// Every bundled scene and guide entry must be a valid artifact.
func TestBundledData(t *testing.T) {
	cfg := testConfig(t)
	store := scenario.NewTemplateStore(cfg.EventsDir, cfg.ParentGuidePath)
	for _, topic := range store.Topics() {
		n, err := store.SceneCount(topic)
		require.NoError(t, err, topic.ID)
		require.Positive(t, n, topic.ID)
		for i := 0; i < n; i++ {
			scene, err := store.Scene(topic, i)
			require.NoError(t, err, "%s scene %d", topic.ID, i)
			assert.NoError(t, scene.Validate(), "%s scene %d", topic.ID, i)
		}

		situations, err := store.Situations(topic)
		require.NoError(t, err)
		require.NotEmpty(t, situations, topic.ID)
		for _, s := range situations {
			assert.NoError(t, s.Validate(), topic.ID)
		}
	}
}
