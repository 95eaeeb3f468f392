package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler polls for due reminders on a fixed interval.
type Scheduler struct {
	service       *Service
	interval      time.Duration
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	logger        *slog.Logger
	processedChan chan int // For testing: reports processed count
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Interval  time.Duration // How often to check for due reminders
	BatchSize int           // Max reminders to deliver per cycle
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:  time.Minute,
		BatchSize: 100,
	}
}

// NewScheduler creates a new reminder scheduler.
func NewScheduler(service *Service, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	service.SetBatchSize(config.BatchSize)

	return &Scheduler{
		service:  service,
		interval: config.Interval,
		stopCh:   make(chan struct{}),
		logger:   slog.Default(),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("study reminder scheduler started", "interval", s.interval)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("study reminder scheduler stopped")
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetLogger sets a custom logger.
func (s *Scheduler) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// EnableTestMode enables test mode with a channel for processed counts.
func (s *Scheduler) EnableTestMode() <-chan int {
	s.processedChan = make(chan int, 100)
	return s.processedChan
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Process immediately on start
	s.processCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.processCycle(ctx)
		}
	}
}

// processCycle runs one cycle of reminder processing.
func (s *Scheduler) processCycle(ctx context.Context) {
	processed, err := s.service.ProcessDue(ctx)
	if err != nil {
		s.logger.Error("failed to process due study reminders", "error", err)
		return
	}

	if processed > 0 {
		s.logger.Info("sent due study reminders", "count", processed)
	}

	// Report to test channel if enabled
	if s.processedChan != nil {
		select {
		case s.processedChan <- processed:
		default:
			// Don't block if channel is full
		}
	}
}

// RunOnce processes due reminders once (for manual triggering).
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.service.ProcessDue(ctx)
}
