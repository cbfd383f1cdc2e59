package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxRecords bounds the in-memory job registry. Once exceeded, the oldest
// finished records are evicted first-in first-out.
const maxRecords = 1000

var (
	ErrQueueStopped = errors.New("core: queue is not running")
	ErrJobNotFound  = errors.New("core: job not found")
	ErrEmptyPayload = errors.New("core: job payload is empty")
	ErrNoPrinter    = errors.New("core: job has no target printer")
)

// Queue is an unbounded FIFO print queue drained by a single delivery
// worker, so at most one job is ever talking to a printer at a time.
// Producers never block on Enqueue.
type Queue struct {
	transport Transport
	notifier  JobNotifier
	log       *logrus.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*PrintJob
	records map[string]*JobRecord
	order   []string
	stats   QueueStats
	running bool
	stopped bool

	done chan struct{}
}

func NewQueue(transport Transport, notifier JobNotifier, log *logrus.Logger) *Queue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	q := &Queue{
		transport: transport,
		notifier:  notifier,
		log:       log,
		records:   make(map[string]*JobRecord),
		done:      make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the delivery worker. Calling Start twice is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || q.stopped {
		return
	}
	q.running = true
	go q.worker()
}

// Stop shuts the worker down after it finishes the job currently in flight.
// Jobs still queued at that point stay queued and are never delivered.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cond.Broadcast()
	q.mu.Unlock()

	<-q.done
}

// Enqueue accepts a job, assigns it an ID and returns immediately. Delivery
// order is strictly the order of Enqueue calls.
func (q *Queue) Enqueue(kind JobKind, printer string, payload []byte) (*JobRecord, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if printer == "" {
		return nil, ErrNoPrinter
	}

	job := &PrintJob{
		ID:         uuid.NewString(),
		Kind:       kind,
		Printer:    printer,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	record := &JobRecord{
		ID:         job.ID,
		Kind:       job.Kind,
		Printer:    job.Printer,
		Status:     JobStatusQueued,
		EnqueuedAt: job.EnqueuedAt,
	}
	q.trackLocked(record)
	q.pending = append(q.pending, job)
	q.stats.Queued++
	q.stats.Total++
	q.cond.Signal()

	q.log.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"kind":    job.Kind,
		"printer": job.Printer,
		"bytes":   len(job.Payload),
	}).Info("job enqueued")

	return snapshot(record), nil
}

// Job returns the status snapshot for a job ID.
func (q *Queue) Job(id string) (*JobRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	record, ok := q.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return snapshot(record), nil
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return
		}

		job := q.pending[0]
		q.pending = q.pending[1:]
		record := q.records[job.ID]
		record.Status = JobStatusInFlight
		q.stats.Queued--
		q.stats.InFlight++
		q.mu.Unlock()

		q.notify("job_started", record)

		err := q.transport.Send(job.Printer, job.Payload)

		now := time.Now()
		q.mu.Lock()
		record.CompletedAt = &now
		q.stats.InFlight--
		if err != nil {
			record.Status = JobStatusFailed
			record.Error = err.Error()
			q.stats.Failed++
		} else {
			record.Status = JobStatusDelivered
			q.stats.Delivered++
		}
		q.evictLocked()
		q.mu.Unlock()

		if err != nil {
			q.log.WithError(err).WithFields(logrus.Fields{
				"job_id":  job.ID,
				"printer": job.Printer,
			}).Error("job delivery failed")
			q.notify("job_failed", record)
			continue
		}

		q.log.WithFields(logrus.Fields{
			"job_id":  job.ID,
			"printer": job.Printer,
			"bytes":   len(job.Payload),
		}).Info("job delivered")
		q.notify("job_delivered", record)
	}
}

func (q *Queue) notify(event string, record *JobRecord) {
	if q.notifier == nil {
		return
	}
	q.mu.Lock()
	snap := *record
	q.mu.Unlock()
	q.notifier.SendJobEvent(event, snap)
}

func (q *Queue) trackLocked(record *JobRecord) {
	q.records[record.ID] = record
	q.order = append(q.order, record.ID)
	q.evictLocked()
}

// evictLocked drops the oldest finished records once the registry is over
// capacity. Queued and in-flight records are never evicted; their statuses
// must stay observable.
func (q *Queue) evictLocked() {
	for len(q.order) > maxRecords {
		evicted := false
		for i, id := range q.order {
			r := q.records[id]
			if r.Status == JobStatusDelivered || r.Status == JobStatusFailed {
				delete(q.records, id)
				q.order = append(q.order[:i], q.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			break
		}
	}
}

func snapshot(record *JobRecord) *JobRecord {
	snap := *record
	return &snap
}
