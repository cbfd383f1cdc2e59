package core

import (
	"time"
)

type JobKind string

const (
	JobKindText JobKind = "text"
	JobKindZPL  JobKind = "zpl"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusInFlight  JobStatus = "in_flight"
	JobStatusDelivered JobStatus = "delivered"
	JobStatusFailed    JobStatus = "failed"
)

// PrintJob is one unit of work for the delivery worker. Jobs are immutable
// once enqueued: handlers build the complete device payload up front and the
// worker only moves bytes.
type PrintJob struct {
	ID         string
	Kind       JobKind
	Printer    string
	Payload    []byte
	EnqueuedAt time.Time
}

// JobRecord is the observable snapshot of a job. Records live in memory
// only; there is no persisted job history and nothing survives a restart.
type JobRecord struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	Printer     string     `json:"printer"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type QueueStats struct {
	Queued    int `json:"queued"`
	InFlight  int `json:"in_flight"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// Transport moves a finished byte stream to a named printer. Implementations
// own the whole device session (open, write, close) and report any stage
// failure as an error.
type Transport interface {
	Send(printerName string, data []byte) error
}

// JobNotifier receives job lifecycle events from the delivery worker.
type JobNotifier interface {
	SendJobEvent(event string, record JobRecord)
}
