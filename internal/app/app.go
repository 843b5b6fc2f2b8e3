// Package app wires the configured services together for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"story-coach/internal/agents"
	"story-coach/internal/analytics"
	"story-coach/internal/cache"
	"story-coach/internal/config"
	"story-coach/internal/experts"
	"story-coach/internal/llm"
	"story-coach/internal/persona"
	"story-coach/internal/quality"
	"story-coach/internal/scenario"
	"story-coach/internal/scheduler"
	"story-coach/internal/storage"
	"story-coach/internal/telemetry"
	"story-coach/internal/tokens"
)

// App holds the services of one process. Session collects telemetry until
// Close.
type App struct {
	Config    *config.Config
	Session   *telemetry.Session
	Recorder  *storage.FileRecorder
	Store     *cache.Store
	Generator *scenario.Generator
	Experts   *experts.Service
}

// New builds the services for cfg. client may be nil, in which case it is
// created from the configured provider.
func New(cfg *config.Config, client llm.Client) (*App, error) {
	var opts []telemetry.SessionOption
	recorder, err := storage.NewFileRecorder(cfg.DebugLogDir)
	if err != nil {
		log.Printf("⚠️ failed to init debug log recorder: %v", err)
	} else {
		opts = append(opts, telemetry.WithRecorder(recorder, cfg.DebugLogAlways))
	}
	session := telemetry.NewSession(telemetry.Pricing{
		InputPerMTok:  cfg.InputPricePerMTok,
		OutputPerMTok: cfg.OutputPricePerMTok,
	}, opts...)

	if client == nil {
		client, err = llm.NewFactory(cfg).CreateFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
	}

	policy, err := quality.ParseFailPolicy(cfg.ValidatorFailPolicy)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg, session)
	if err != nil {
		return nil, err
	}

	validator := quality.NewValidator(client, cfg.MaxTokens, policy, session)
	templates := scenario.NewTemplateStore(cfg.EventsDir, cfg.ParentGuidePath)
	generator := scenario.NewGenerator(templates, agents.NewCoordinator(client, cfg.MaxTokens, session), validator, store, scenario.Options{
		QualityThreshold:   cfg.AIQualityThreshold,
		SituationThreshold: cfg.ParentSituationThreshold,
	})
	svc := experts.NewService(client, persona.Default(), validator, tokens.NewTiktokenCounter(client.Model()), session, experts.Options{
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.StreamTimeout,
	})

	log.Printf("✅ Services ready: provider=%s model=%s cache=%s", cfg.LLMProvider, client.Model(), cfg.CacheBackend)
	return &App{
		Config:    cfg,
		Session:   session,
		Recorder:  recorder,
		Store:     store,
		Generator: generator,
		Experts:   svc,
	}, nil
}

// SituationAttempts is the number of generation attempts for parent
// situations. Zero when AI generation is switched off.
func (a *App) SituationAttempts(override int) int {
	if !a.Config.UseAIGeneration {
		return 0
	}
	if override > 0 {
		return override
	}
	return a.Config.AIGenerationMaxAttempts
}

// Scheduler returns a scheduler that purges expired cache entries on
// CACHE_PURGE_SCHEDULE and logs the usage report on REPORT_SCHEDULE. The
// caller starts and stops it.
func (a *App) Scheduler() *scheduler.Scheduler {
	s := scheduler.New(a.Config.CachePurgeSchedule)
	s.SetPurgeFunction(func(context.Context) (int, error) {
		return a.Generator.PurgeExpired()
	})
	if a.Recorder != nil {
		s.SetReportFunction(a.Config.ReportSchedule, func(context.Context) error {
			report, err := a.Report(time.Now())
			if err != nil {
				return err
			}
			log.Printf("📊 %s", report.GenerateReportSummary())
			return nil
		})
	}
	return s
}

// Report aggregates the sessions recorded on day.
func (a *App) Report(day time.Time) (*analytics.DailyStats, error) {
	if a.Recorder == nil {
		return nil, fmt.Errorf("debug log recorder unavailable")
	}
	sessions, err := a.Recorder.LoadSessions(day)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return analytics.AnalyzeDailySessions(sessions, day), nil
}

// Close ends the telemetry session and releases the cache.
func (a *App) Close() error {
	var errs []error
	if err := a.Session.End(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}
