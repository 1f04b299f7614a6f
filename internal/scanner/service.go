package scanner

import (
	"context"
	"sync"
	"time"

	"lms/config"
	"lms/internal/catalog"
	"lms/internal/events"
	applog "lms/pkg/logger"

	"github.com/go-co-op/gocron"
)

// Service is the single scanner instance for one server process. Its
// own mutex guards run state; it never takes the catalog store's write
// lock itself, leaving that to the steps' transactions.
type Service struct {
	store  *catalog.Store
	config config.Config
	log    applog.Logger
	bus    *events.EventBus

	steps       []Step
	recommender Recommender

	mu            sync.Mutex
	state         State
	running       bool
	currentStep   *StepStats
	lastStats     *Stats
	nextScheduled *time.Time
	cancelRunning context.CancelFunc

	scheduler *gocron.Scheduler
	schedJob  *gocron.Job
}

func NewService(store *catalog.Store, cfg config.Config, log applog.Logger, bus *events.EventBus, recommender Recommender) *Service {
	if recommender == nil {
		recommender = NoopRecommender{}
	}
	s := &Service{
		store:       store,
		config:      cfg,
		log:         log,
		bus:         bus,
		recommender: recommender,
		state:       NotScheduled,
		scheduler:   gocron.NewScheduler(time.UTC),
	}
	s.steps = []Step{
		DiscoverStep{},
		ParseUpsertStep{},
		ExternalArtworkUpsertStep{},
		ReconcileOrphansStep{},
		RecomputeArtworkStep{},
		UpdateStatisticsStep{},
		ReloadSimilarityStep{Recommender: recommender},
	}
	return s
}

// RequestReload (re)reads ScanSettings.UpdateScheduleCron and rewires
// the periodic job, replacing whatever was previously scheduled.
func (s *Service) RequestReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cron string
	session, release, err := s.store.Pool().Borrow(context.Background())
	if err != nil {
		return err
	}
	defer release()
	err = session.ReadTransaction(context.Background(), func(tx *catalog.Tx) error {
		settings, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		cron = settings.UpdateScheduleCron
		return nil
	})
	if err != nil {
		return err
	}

	if s.schedJob != nil {
		s.scheduler.RemoveByReference(s.schedJob)
		s.schedJob = nil
	}
	if cron == "" {
		s.state = NotScheduled
		s.nextScheduled = nil
		return nil
	}

	job, err := s.scheduler.Cron(cron).Do(func() {
		_ = s.RequestImmediateScan(false)
	})
	if err != nil {
		s.log.Er("failed to schedule scan", err, "cron", cron)
		return err
	}
	s.schedJob = job
	if !s.scheduler.IsRunning() {
		s.scheduler.StartAsync()
	}
	next := job.NextRun()
	s.nextScheduled = &next
	s.state = Scheduled

	if err := s.bus.PublishScan(events.SCAN_SCHEDULED, map[string]any{"nextRun": next}); err != nil {
		s.log.Er("failed to publish scan scheduled event", err)
	}

	return nil
}

// RequestImmediateScan runs the full step pipeline synchronously in the
// calling goroutine's caller context; callers wanting a background
// scan should invoke this from their own goroutine. A scan already in
// progress is a silent no-op: this matches a single-instance scanner
// not queuing concurrent requests.
func (s *Service) RequestImmediateScan(force bool) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.state = Running
	s.cancelRunning = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.currentStep = nil
		s.cancelRunning = nil
		if s.schedJob != nil {
			s.state = Scheduled
		} else {
			s.state = NotScheduled
		}
		s.mu.Unlock()
	}()

	if err := s.bus.PublishScan(events.SCAN_STARTED, map[string]any{"force": force}); err != nil {
		s.log.Er("failed to publish scan started event", err)
	}

	lastProgress := time.Now()
	sc := newScanContext(ctx, s.store, s.config, force, s.log, func(stats StepStats) {
		s.mu.Lock()
		s.currentStep = &stats
		s.mu.Unlock()
		if time.Since(lastProgress) < time.Second {
			return
		}
		lastProgress = time.Now()
		if err := s.bus.PublishScan(events.SCAN_IN_PROGRESS, map[string]any{
			"step": stats.StepName, "filesScanned": stats.FilesScanned,
			"added": stats.Added, "updated": stats.Updated, "removed": stats.Removed,
		}); err != nil {
			s.log.Er("failed to publish scan progress event", err)
		}
	})
	sc.stats.StartedAt = time.Now()

	var stepErr error
	for _, step := range s.steps {
		if sc.Aborted() {
			break
		}
		start := time.Now()
		if err := step.Execute(sc); err != nil {
			s.log.Er("scan step failed", err, "step", step.Name())
			stepErr = err
			break
		}
		sc.statsMu.Lock()
		sc.stats.DurationPerStep[step.Name()] = time.Since(start)
		sc.statsMu.Unlock()
	}

	s.mu.Lock()
	s.lastStats = sc.stats
	s.mu.Unlock()

	if sc.Aborted() && stepErr == nil {
		if err := s.bus.PublishScan(events.SCAN_ABORTED, map[string]any{}); err != nil {
			s.log.Er("failed to publish scan aborted event", err)
		}
		return nil
	}

	if err := s.bus.PublishScan(events.SCAN_COMPLETE, map[string]any{
		"filesScanned": sc.stats.FilesScanned,
		"added":        sc.stats.Added,
		"updated":      sc.stats.Updated,
		"removed":      sc.stats.Removed,
		"errors":       sc.stats.ErrorsByKind,
	}); err != nil {
		s.log.Er("failed to publish scan complete event", err)
	}

	return stepErr
}

// AbortScan cancels the currently running scan, if any; subsequent
// steps observe Context.Aborted() and return without doing more work.
func (s *Service) AbortScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRunning != nil {
		s.cancelRunning()
	}
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:             s.state,
		LastCompleteStats: s.lastStats,
		CurrentStepStats:  s.currentStep,
		NextScheduledScan: s.nextScheduled,
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRunning != nil {
		s.cancelRunning()
	}
	if s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
