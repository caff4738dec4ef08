package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/vod-comb/app/poller"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrCycleRunning = errors.New("poll cycle already running")

// Scheduler runs one poll cycle at start and then every interval. Cycles
// never overlap: a tick or manual trigger that arrives while a cycle is
// running is dropped.
type Scheduler struct {
	poller   CycleRunner
	interval time.Duration
	running  atomic.Bool
	fatal    chan error
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(p CycleRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		poller:   p,
		interval: interval,
		fatal:    make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runCycle(TriggerStartup)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle(TriggerTicker)
			}
		}
	}()
}

// Stop cancels the running cycle and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TriggerCycle starts a cycle in the background. It returns ErrCycleRunning
// when a cycle is already in progress.
func (s *Scheduler) TriggerCycle() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.executeTask(NewPollCycleTask(TriggerManual, s.poller))
	}()
	return nil
}

// Fatal delivers poller.ErrFailureLimit once the poller gives up.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatal
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) runCycle(trigger Trigger) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("Poll cycle still running, skipping", "trigger", string(trigger))
		return
	}
	defer s.running.Store(false)

	s.executeTask(NewPollCycleTask(trigger, s.poller))
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	err := task.Execute(s.ctx)
	if err == nil {
		return
	}

	if errors.Is(err, poller.ErrFailureLimit) {
		slog.Error("Failure limit reached, stopping", "type", string(task.GetType()), "id", task.GetID())
		select {
		case s.fatal <- err:
		default:
		}
		return
	}

	if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		slog.Debug("Task cancelled by shutdown", "type", string(task.GetType()), "id", task.GetID())
		return
	}

	slog.Error("Task execution failed",
		"type", string(task.GetType()),
		"id", task.GetID(),
		"trigger", string(task.GetTrigger()),
		"duration", task.GetDuration().String(),
		"error", err)
}
