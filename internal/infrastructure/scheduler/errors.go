package scheduler

import "errors"

var (
	// ErrPoolNotRunning is returned when submitting to a stopped worker pool
	ErrPoolNotRunning = errors.New("worker pool is not running")

	// ErrQueueFull is returned when the job queue is full
	ErrQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid worker pool configuration")
)
