package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealradar/deal-aggregator/internal/database"
	"github.com/dealradar/deal-aggregator/internal/extractor"
	"github.com/dealradar/deal-aggregator/internal/models"
)

// Store is the slice of the deal store the scheduler writes to.
type Store interface {
	UpsertDeal(ctx context.Context, deal *models.Deal) error
	AppendPriceHistory(ctx context.Context, deal *models.Deal) error
	SweepExpired(ctx context.Context) (int64, error)
	DeleteInvalid(ctx context.Context) (int64, error)
	CountActiveByPlatform(ctx context.Context) (map[models.Platform]int, error)
}

// Cache is invalidated after every run so searches see fresh deals.
type Cache interface {
	InvalidateSearch(ctx context.Context)
}

// Extractors resolves the extractor for a platform.
type Extractors interface {
	ForPlatform(platform models.Platform) (extractor.Extractor, bool)
}

// Pacer spaces consecutive scrapes within one platform.
type Pacer interface {
	AfterSuccess(ctx context.Context) error
	AfterError(ctx context.Context) error
}

// PlatformReport tallies one platform's slice of an ingestion run.
type PlatformReport struct {
	Attempted        int `json:"attempted"`
	Stored           int `json:"stored"`
	ExtractErrors    int `json:"extract_errors"`
	ValidationErrors int `json:"validation_errors"`
}

// Report summarizes one ingestion run.
type Report struct {
	RunID     string                              `json:"run_id"`
	StartedAt time.Time                           `json:"started_at"`
	Duration  time.Duration                       `json:"duration"`
	Platforms map[models.Platform]*PlatformReport `json:"platforms"`
	Swept     int64                               `json:"swept"`
	Purged    int64                               `json:"purged"`
}

type Config struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler runs the ingestion job: platforms scrape concurrently, items
// within a platform scrape sequentially through the pacer. Runs fire on a
// fixed interval and on manual triggers; a trigger during a run queues at
// most one follow-up run.
type Scheduler struct {
	store      Store
	cache      Cache
	extractors Extractors
	pacer      Pacer
	targets    map[models.Platform][]string
	logger     *slog.Logger

	interval     time.Duration
	startupDelay time.Duration
	trigger      chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(store Store, cache Cache, extractors Extractors, pacer Pacer, targets map[models.Platform][]string, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 6 * time.Hour
	}

	return &Scheduler{
		store:        store,
		cache:        cache,
		extractors:   extractors,
		pacer:        pacer,
		targets:      targets,
		logger:       logger.With("component", "scheduler"),
		interval:     cfg.Interval,
		startupDelay: cfg.StartupDelay,
		trigger:      make(chan struct{}, 1),
	}
}

// Trigger requests a run outside the schedule. It never blocks; the return
// value reports whether the request was queued or one was already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start blocks until ctx is done or Stop is called, running ingestion once
// after the startup delay and then on every interval tick or trigger.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.logger.Info("scheduler starting",
		"interval", s.interval,
		"startup_delay", s.startupDelay,
		"platforms", len(s.targets))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.startupDelay):
	}

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.trigger:
			s.RunOnce(ctx)
		}
	}
}

// Stop ends a running Start loop. Safe to call before Start or twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunOnce executes one full ingestion pass and returns its report.
func (s *Scheduler) RunOnce(ctx context.Context) *Report {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Platforms: make(map[models.Platform]*PlatformReport, len(s.targets)),
	}
	logger := s.logger.With("run_id", report.RunID)
	logger.Info("ingestion run starting")

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for platform, urls := range s.targets {
		pr := &PlatformReport{}
		report.Platforms[platform] = pr

		wg.Add(1)
		go func(platform models.Platform, urls []string, pr *PlatformReport) {
			defer wg.Done()
			s.runPlatform(ctx, logger, platform, urls, &mu, pr)
		}(platform, urls, pr)
	}

	wg.Wait()

	if swept, err := s.store.SweepExpired(ctx); err != nil {
		logger.Error("sweep failed", "error", err)
	} else {
		report.Swept = swept
	}

	// Rows written before the current validation rules go out with the sweep.
	if purged, err := s.store.DeleteInvalid(ctx); err != nil {
		logger.Error("purge failed", "error", err)
	} else {
		report.Purged = purged
	}

	if counts, err := s.store.CountActiveByPlatform(ctx); err != nil {
		logger.Error("count failed", "error", err)
	} else {
		for platform, count := range counts {
			logger.Info("active deals", "platform", platform, "count", count)
		}
	}

	s.cache.InvalidateSearch(ctx)

	report.Duration = time.Since(report.StartedAt)
	logger.Info("ingestion run finished",
		"duration", report.Duration,
		"swept", report.Swept,
		"purged", report.Purged)

	return report
}

func (s *Scheduler) runPlatform(ctx context.Context, logger *slog.Logger, platform models.Platform, urls []string, mu *sync.Mutex, pr *PlatformReport) {
	ext, ok := s.extractors.ForPlatform(platform)
	if !ok {
		logger.Error("no extractor for platform", "platform", platform)
		return
	}

	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		pr.Attempted++
		mu.Unlock()

		scraped, err := ext.Extract(ctx, url)
		if err != nil {
			logger.Warn("extract failed", "platform", platform, "url", url, "error", err)
			mu.Lock()
			pr.ExtractErrors++
			mu.Unlock()
			if s.pacer.AfterError(ctx) != nil {
				return
			}
			continue
		}

		if err := s.storeDeal(ctx, scraped); err != nil {
			if _, ok := database.AsValidationError(err); ok {
				logger.Info("deal rejected", "platform", platform, "url", url, "reason", err)
				mu.Lock()
				pr.ValidationErrors++
				mu.Unlock()
			} else {
				logger.Error("store failed", "platform", platform, "url", url, "error", err)
				mu.Lock()
				pr.ExtractErrors++
				mu.Unlock()
			}
			if s.pacer.AfterError(ctx) != nil {
				return
			}
			continue
		}

		mu.Lock()
		pr.Stored++
		mu.Unlock()

		if s.pacer.AfterSuccess(ctx) != nil {
			return
		}
	}
}

func (s *Scheduler) storeDeal(ctx context.Context, scraped *models.ScrapedProduct) error {
	deal := database.NewDealFromScrape(scraped)
	if err := s.store.UpsertDeal(ctx, deal); err != nil {
		return err
	}
	return s.store.AppendPriceHistory(ctx, deal)
}
