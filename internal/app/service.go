// Package app assembles the notification pipeline from configuration and
// runs it until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/deskalert/internal/api"
	"github.com/nhle/deskalert/internal/dataset"
	"github.com/nhle/deskalert/internal/ledger"
	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/metrics"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/notify"
	"github.com/nhle/deskalert/internal/permission"
	"github.com/nhle/deskalert/internal/queue"
	"github.com/nhle/deskalert/internal/realtime"
	"github.com/nhle/deskalert/internal/scanner"
	"github.com/nhle/deskalert/internal/settings"
	"github.com/nhle/deskalert/internal/store"
	"github.com/nhle/deskalert/internal/toast"
)

const (
	// drainTimeout bounds how long shutdown waits for queued notifications.
	drainTimeout = 5 * time.Second

	// reloadInterval is how often the cached collections are refetched
	// regardless of realtime events.
	reloadInterval = 5 * time.Minute

	reloadJob = "reload"
)

// Deps overrides components New would otherwise build from configuration.
// Nil fields are built from the config.
type Deps struct {
	Store    *store.SQLiteStore
	Loader   dataset.Loader
	Remote   settings.Remote
	Feed     realtime.Feed
	Notifier notify.Notifier
	Prompter permission.Prompter
	Console  io.Writer
	Now      func() time.Time
}

// Service is the running daemon.
type Service struct {
	cfg *model.AppConfig
	log *log.Logger

	Store     *store.SQLiteStore
	Metrics   *metrics.Metrics
	Settings  *settings.CachedProvider
	Gate      *settings.Gate
	Ledger    *ledger.Ledger
	Dataset   *dataset.Dataset
	Queue     *queue.Queue
	Scanner   *scanner.Scanner
	Scheduler *scanner.Scheduler
	Bridge    *realtime.Bridge
	API       *api.Server

	permission *permission.Gate
	closers    []func() error
}

// New builds every component. The caller must Close the service.
func New(ctx context.Context, cfg *model.AppConfig, deps Deps) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		log:     logging.GetLogger(logging.App),
		Metrics: metrics.New(),
	}

	if err := s.build(ctx, deps); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context, deps Deps) error {
	cfg := s.cfg

	st := deps.Store
	if st == nil {
		var err error
		if st, err = store.NewSQLiteStore(cfg.Database.Path); err != nil {
			return fmt.Errorf("opening local store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
	}
	s.Store = st

	if deps.Loader == nil || deps.Remote == nil {
		pg, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, pg.Close)
		if deps.Loader == nil {
			deps.Loader = pg
		}
		if deps.Remote == nil {
			deps.Remote = pg
		}
	}

	s.Settings = settings.NewCachedProvider(cfg.UserID, deps.Remote, st)
	if err := s.Settings.Load(ctx); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	s.Gate = settings.NewGate(s.Settings)
	s.closers = append(s.closers, func() error { s.Gate.Close(); return nil })

	s.Ledger = ledger.New(st, ledger.Options{
		Cooldown:  cfg.Ledger.Cooldown,
		Retention: cfg.Ledger.Retention,
		Now:       deps.Now,
	})

	if deps.Notifier == nil {
		n, prompter := s.buildNotifier(st)
		deps.Notifier = n
		if deps.Prompter == nil {
			deps.Prompter = prompter
		}
	}
	if deps.Prompter == nil {
		deps.Prompter = permission.Always(true)
	}
	s.permission = permission.NewGate(deps.Prompter)

	s.Queue = queue.New(s.Gate, s.permission, deps.Notifier, queue.Options{
		MinDelay: time.Duration(cfg.Queue.MinDelayMs) * time.Millisecond,
		MaxDelay: time.Duration(cfg.Queue.MaxDelayMs) * time.Millisecond,
		DedupTTL: cfg.Ledger.Cooldown,
		Metrics:  s.Metrics,
	})
	s.closers = append(s.closers, func() error { s.Queue.Close(); return nil })

	console := toast.Toaster(toast.Discard{})
	if deps.Console != nil {
		console = toast.NewTerminal(deps.Console)
	}

	s.Dataset = dataset.New(deps.Loader)
	s.Scanner = scanner.New(s.Dataset, s.Ledger,
		toast.Fanout{toast.NewInbox(st, cfg.UserID), console},
		s.Queue,
		scanner.Options{
			Location:         cfg.Location(),
			MeetingLead:      cfg.MeetingLead(),
			DailySummaryHour: scanner.SummaryHour(cfg.Scanner.DailySummaryHour),
			Now:              deps.Now,
			Metrics:          s.Metrics,
		})

	jobs := s.Scanner.Jobs(cfg.ScanInterval(), cfg.ScanInitialDelay())
	jobs = append(jobs, scanner.Job{
		Name:         reloadJob,
		Interval:     reloadInterval,
		InitialDelay: reloadInterval,
		Run:          s.reload,
	})
	s.Scheduler = scanner.NewScheduler(jobs...)

	feed := deps.Feed
	if feed == nil {
		var err error
		if feed, err = s.buildFeed(cfg); err != nil {
			return err
		}
	}
	if feed != nil {
		s.Bridge = &realtime.Bridge{
			Feed:     feed,
			Dataset:  s.Dataset,
			Settings: s.Settings,
			Gate:     s.Gate,
			Queue:    s.Queue,
			Toaster:  console,
			Inbox:    st,
			Metrics:  s.Metrics,
			OnReconnect: func(ctx context.Context) {
				s.reload(ctx)
				s.Scheduler.TriggerAll()
			},
		}
	}

	vapidKey := ""
	if cfg.Notifier.WebPush.Enabled {
		vapidKey = cfg.Notifier.WebPush.PublicKey
	}
	s.API = api.NewServer(cfg.HTTP.Addr, st, s.Settings, s.Metrics, vapidKey, s.health)

	return nil
}

// Run loads data and runs the scheduler, realtime bridge and local API
// until ctx is cancelled, then waits briefly for queued notifications.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Dataset.Load(ctx); err != nil {
		s.log.Printf("[WARN] Initial data load incomplete: %s\n", err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Scheduler.Run(gctx)
	})

	if s.Bridge != nil {
		g.Go(func() error {
			if err := s.Bridge.Run(gctx); err != nil {
				s.log.Printf("[ERROR] Realtime bridge stopped, relying on scanners: %s\n", err.Error())
			}
			return nil
		})
	}

	if s.cfg.HTTP.Addr != "" {
		g.Go(func() error {
			return s.API.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			return s.API.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if werr := s.Queue.Wait(drainCtx); werr != nil {
		s.log.Printf("[WARN] Shutting down with %d notifications pending\n", s.Queue.Len())
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases every resource New acquired, in reverse order.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) reload(ctx context.Context) {
	if err := s.Dataset.Load(ctx); err != nil {
		s.log.Printf("[WARN] Reload incomplete: %s\n", err.Error())
	}
}

func (s *Service) health() map[string]interface{} {
	jobs := map[string]int{}
	for _, st := range s.Scheduler.Statuses() {
		jobs[st.Name] = st.Runs
	}
	return map[string]interface{}{
		"queue":      s.Queue.State(),
		"pending":    s.Queue.Len(),
		"permission": s.permission.State(),
		"jobs":       jobs,
	}
}
