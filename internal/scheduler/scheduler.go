package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler управляет запланированными задачами: очисткой кэша и
// ежедневным отчетом.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	purgeSpec string
	purgeFunc func(ctx context.Context) (int, error)

	reportSpec string
	reportFunc func(ctx context.Context) error
}

// New создает новый планировщик. purgeSpec - cron-выражение или
// дескриптор вроде "@hourly".
func New(purgeSpec string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		ctx:       ctx,
		cancel:    cancel,
		purgeSpec: purgeSpec,
	}
}

// SetPurgeFunction устанавливает функцию очистки просроченного кэша
func (s *Scheduler) SetPurgeFunction(f func(ctx context.Context) (int, error)) {
	s.purgeFunc = f
}

// SetReportFunction устанавливает функцию ежедневного отчета. Пустое
// расписание отключает отчет.
func (s *Scheduler) SetReportFunction(spec string, f func(ctx context.Context) error) {
	s.reportSpec = spec
	s.reportFunc = f
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	if s.purgeFunc == nil {
		log.Println("⚠️ Purge function not set, scheduler will not purge the cache")
	} else {
		if _, err := s.cron.AddFunc(s.purgeSpec, s.runPurge); err != nil {
			return fmt.Errorf("schedule cache purge %q: %w", s.purgeSpec, err)
		}
		log.Printf("📅 Expired cache entries will be purged on %q", s.purgeSpec)
	}

	if s.reportFunc != nil && s.reportSpec != "" {
		if _, err := s.cron.AddFunc(s.reportSpec, s.runReport); err != nil {
			return fmt.Errorf("schedule usage report %q: %w", s.reportSpec, err)
		}
		log.Printf("📅 Usage reports will be generated on %q (UTC)", s.reportSpec)
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started with %d job(s)", len(s.cron.Entries()))
	return nil
}

func (s *Scheduler) runPurge() {
	log.Println("🕘 Triggered cache purge")
	n, err := s.purgeFunc(s.ctx)
	if err != nil {
		log.Printf("❌ Cache purge failed: %v", err)
		return
	}
	log.Printf("✅ Cache purge removed %d entries", n)
}

func (s *Scheduler) runReport() {
	log.Println("🕘 Triggered usage report")
	if err := s.reportFunc(s.ctx); err != nil {
		log.Printf("❌ Usage report failed: %v", err)
	}
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning проверяет, запущен ли планировщик
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
