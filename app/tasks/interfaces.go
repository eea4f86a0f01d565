package tasks

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the API layer to manage
// background pipeline stages.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueStage(stageName string, force bool) error
}
