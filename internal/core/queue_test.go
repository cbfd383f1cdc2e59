package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

type fakeTransport struct {
	mu       sync.Mutex
	sends    []string
	inFlight int
	maxSeen  int
	fail     map[string]error
	delay    time.Duration
	signal   chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		fail:   make(map[string]error),
		signal: make(chan string, 64),
	}
}

func (f *fakeTransport) Send(printerName string, data []byte) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.sends = append(f.sends, string(data))
	err := f.fail[string(data)]
	f.mu.Unlock()

	f.signal <- string(data)
	return err
}

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func waitFor(t *testing.T, f *fakeTransport, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func newTestQueue(transport Transport) *Queue {
	log, _ := test.NewNullLogger()
	return NewQueue(transport, nil, log)
}

func waitStatus(t *testing.T, q *Queue, id string, want JobStatus) *JobRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := q.Job(id)
		if err != nil {
			t.Fatalf("Job(%s): %v", id, err)
		}
		if record.Status == want {
			return record
		}
		time.Sleep(time.Millisecond)
	}
	record, _ := q.Job(id)
	t.Fatalf("job %s never reached %s (last: %s)", id, want, record.Status)
	return nil
}

func TestQueueDeliversInEnqueueOrder(t *testing.T) {
	transport := newFakeTransport()
	q := newTestQueue(transport)
	q.Start()
	defer q.Stop()

	for _, payload := range []string{"A", "B", "C"} {
		if _, err := q.Enqueue(JobKindText, "tickets", []byte(payload)); err != nil {
			t.Fatalf("Enqueue(%s): %v", payload, err)
		}
	}

	waitFor(t, transport, 3)

	got := transport.sent()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("delivery order = %v, want [A B C]", got)
	}
}

func TestQueueFailureDoesNotBlockLaterJobs(t *testing.T) {
	transport := newFakeTransport()
	transport.fail["B"] = errors.New("printer unplugged")
	q := newTestQueue(transport)
	q.Start()
	defer q.Stop()

	var ids []string
	for _, payload := range []string{"A", "B", "C"} {
		record, err := q.Enqueue(JobKindText, "tickets", []byte(payload))
		if err != nil {
			t.Fatalf("Enqueue(%s): %v", payload, err)
		}
		ids = append(ids, record.ID)
	}

	waitFor(t, transport, 3)

	if got := transport.sent(); len(got) != 3 || got[2] != "C" {
		t.Fatalf("sends = %v, want C delivered after B's failure", got)
	}

	failed := waitStatus(t, q, ids[1], JobStatusFailed)
	if failed.Error != "printer unplugged" {
		t.Errorf("failed job error = %q", failed.Error)
	}
	waitStatus(t, q, ids[0], JobStatusDelivered)
	waitStatus(t, q, ids[2], JobStatusDelivered)
}

func TestQueueSingleJobInFlight(t *testing.T) {
	transport := newFakeTransport()
	transport.delay = 5 * time.Millisecond
	q := newTestQueue(transport)
	q.Start()
	defer q.Stop()

	for i := 0; i < 8; i++ {
		if _, err := q.Enqueue(JobKindZPL, "labels", []byte{byte('0' + i)}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	waitFor(t, transport, 8)

	transport.mu.Lock()
	maxSeen := transport.maxSeen
	transport.mu.Unlock()
	if maxSeen != 1 {
		t.Fatalf("max concurrent sends = %d, want 1", maxSeen)
	}
}

func TestQueueStatusTransitions(t *testing.T) {
	transport := newFakeTransport()
	q := newTestQueue(transport)

	record, err := q.Enqueue(JobKindText, "tickets", []byte("doc"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if record.Status != JobStatusQueued {
		t.Fatalf("initial status = %s, want %s", record.Status, JobStatusQueued)
	}
	if record.ID == "" {
		t.Fatal("job must get an ID on enqueue")
	}
	if record.CompletedAt != nil {
		t.Fatal("queued job must not have a completion time")
	}

	q.Start()
	defer q.Stop()

	done := waitStatus(t, q, record.ID, JobStatusDelivered)
	if done.CompletedAt == nil {
		t.Fatal("delivered job must record a completion time")
	}
	if done.Error != "" {
		t.Fatalf("delivered job has error %q", done.Error)
	}
}

func TestQueueStats(t *testing.T) {
	transport := newFakeTransport()
	transport.fail["bad"] = errors.New("offline")
	q := newTestQueue(transport)
	q.Start()
	defer q.Stop()

	q.Enqueue(JobKindText, "tickets", []byte("ok"))
	q.Enqueue(JobKindText, "tickets", []byte("bad"))
	waitFor(t, transport, 2)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := q.Stats()
		if stats.Delivered == 1 && stats.Failed == 1 {
			if stats.Total != 2 || stats.Queued != 0 || stats.InFlight != 0 {
				t.Fatalf("stats = %+v", stats)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("stats never settled: %+v", q.Stats())
}

func TestQueueEnqueueValidation(t *testing.T) {
	q := newTestQueue(newFakeTransport())

	if _, err := q.Enqueue(JobKindText, "tickets", nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("empty payload err = %v", err)
	}
	if _, err := q.Enqueue(JobKindText, "", []byte("x")); !errors.Is(err, ErrNoPrinter) {
		t.Errorf("missing printer err = %v", err)
	}
}

func TestQueueJobNotFound(t *testing.T) {
	q := newTestQueue(newFakeTransport())
	if _, err := q.Job("no-such-id"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestQueueStopRejectsNewJobs(t *testing.T) {
	transport := newFakeTransport()
	q := newTestQueue(transport)
	q.Start()
	q.Stop()

	if _, err := q.Enqueue(JobKindText, "tickets", []byte("late")); !errors.Is(err, ErrQueueStopped) {
		t.Fatalf("err = %v, want ErrQueueStopped", err)
	}
}

func TestQueueRecordSnapshotIsolation(t *testing.T) {
	transport := newFakeTransport()
	q := newTestQueue(transport)

	record, err := q.Enqueue(JobKindText, "tickets", []byte("doc"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	record.Status = "tampered"

	fresh, err := q.Job(record.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if fresh.Status != JobStatusQueued {
		t.Fatalf("mutating a returned record leaked into the queue: %s", fresh.Status)
	}
}

func TestQueueEvictsOldestFinishedRecords(t *testing.T) {
	transport := newFakeTransport()
	transport.signal = make(chan string, 2*maxRecords)
	q := newTestQueue(transport)
	q.Start()
	defer q.Stop()

	total := maxRecords + 10
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		record, err := q.Enqueue(JobKindText, "tickets", []byte(fmt.Sprintf("j%d", i)))
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		ids = append(ids, record.ID)
	}
	waitFor(t, transport, total)

	waitStatus(t, q, ids[total-1], JobStatusDelivered)

	if _, err := q.Job(ids[0]); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("oldest record should be evicted, got err = %v", err)
	}
}
