package scanner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/deskalert/internal/logging"
)

// Default job timing.
const (
	DefaultInterval     = 60 * time.Second
	DefaultInitialDelay = 3 * time.Second
)

// Job is a periodic task.
type Job struct {
	Name string

	// Interval is the time between runs.
	Interval time.Duration

	// InitialDelay is the wait before the first run.
	InitialDelay time.Duration

	Run func(ctx context.Context)
}

// JobStatus is the last observed state of a job.
type JobStatus struct {
	Name    string
	Runs    int
	LastRun time.Time
}

// Scheduler runs jobs on their intervals until its context ends.
type Scheduler struct {
	jobs     []Job
	triggers map[string]chan struct{}
	log      *log.Logger

	mu       sync.Mutex
	statuses map[string]*JobStatus
	running  bool
}

// NewScheduler creates a Scheduler for jobs. Job names must be unique.
func NewScheduler(jobs ...Job) *Scheduler {
	s := &Scheduler{
		triggers: make(map[string]chan struct{}, len(jobs)),
		statuses: make(map[string]*JobStatus, len(jobs)),
		log:      logging.GetLogger(logging.Scanner),
	}
	for _, j := range jobs {
		if j.Interval <= 0 {
			j.Interval = DefaultInterval
		}
		if j.InitialDelay < 0 {
			j.InitialDelay = 0
		}
		s.jobs = append(s.jobs, j)
		s.triggers[j.Name] = make(chan struct{}, 1)
		s.statuses[j.Name] = &JobStatus{Name: j.Name}
	}
	return s
}

// Run starts every job and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		j := j
		g.Go(func() error {
			s.loop(gctx, j)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Println("[DEBUG] Scheduler stopped")
	return nil
}

// Trigger asks the named job to run now. It reports false for unknown
// jobs. A trigger already pending is not duplicated.
func (s *Scheduler) Trigger(name string) bool {
	ch, ok := s.triggers[name]
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

// TriggerAll asks every job to run now.
func (s *Scheduler) TriggerAll() {
	for name := range s.triggers {
		s.Trigger(name)
	}
}

// Statuses returns the status of every job.
func (s *Scheduler) Statuses() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *s.statuses[j.Name])
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	delay := time.NewTimer(j.InitialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	case <-s.triggers[j.Name]:
	}
	s.run(ctx, j)

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, j)
		case <-s.triggers[j.Name]:
			s.run(ctx, j)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("[ERROR] Job %s panicked: %v\n", j.Name, r)
		}
	}()

	j.Run(ctx)

	s.mu.Lock()
	st := s.statuses[j.Name]
	st.Runs++
	st.LastRun = time.Now()
	s.mu.Unlock()
}
