package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/vod-comb/app/poller"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) (poller.CycleResult, error)
}

type PollCycleTask struct {
	Task
	poller CycleRunner
	Result poller.CycleResult
}

func NewPollCycleTask(trigger Trigger, p CycleRunner) *PollCycleTask {
	return &PollCycleTask{
		Task:   NewTask(TaskTypePollCycle, trigger),
		poller: p,
	}
}

func (t *PollCycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.poller.RunCycle(ctx)
	t.Result = result
	if err != nil {
		return err
	}

	slog.Debug("Poll cycle task finished",
		"id", t.ID,
		"trigger", string(t.Trigger),
		"lookups", result.Lookups,
		"recorded", result.Recorded,
		"duration", t.GetDuration().String())
	return nil
}
