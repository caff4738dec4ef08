package tasks

// TaskSchedulerInterface is what the application and the HTTP API use to
// drive poll cycles.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	TriggerCycle() error
	Fatal() <-chan error
}
