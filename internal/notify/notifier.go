package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/posprint/printbridge/internal/core"
)

const defaultQueueSize = 100

type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

type payload struct {
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Job       core.JobRecord `json:"job"`
}

// Notifier POSTs job lifecycle events to a configured endpoint. Events are
// fire-and-forget: delivery runs on its own worker so a slow or dead endpoint
// can never stall the print queue, and a full event buffer drops the oldest
// news rather than blocking.
type Notifier struct {
	url        string
	secret     string
	httpClient *http.Client
	log        *logrus.Logger

	queue  chan payload
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewNotifier(cfg Config, log *logrus.Logger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:        cfg.URL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		queue:      make(chan payload, defaultQueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.worker()
}

func (n *Notifier) Stop() {
	close(n.stopCh)
	n.wg.Wait()
}

// SendJobEvent implements core.JobNotifier.
func (n *Notifier) SendJobEvent(event string, record core.JobRecord) {
	if n.url == "" {
		return
	}

	p := payload{Event: event, Timestamp: time.Now(), Job: record}
	select {
	case n.queue <- p:
	default:
		n.log.WithFields(logrus.Fields{
			"event":  event,
			"job_id": record.ID,
		}).Warn("notification buffer full, event dropped")
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()

	for {
		select {
		case <-n.stopCh:
			return
		case p := <-n.queue:
			if err := n.send(p); err != nil {
				n.log.WithError(err).WithFields(logrus.Fields{
					"event":  p.Event,
					"job_id": p.Job.ID,
				}).Warn("job notification failed")
			}
		}
	}
}

func (n *Notifier) send(p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", p.Event)
	if n.secret != "" {
		req.Header.Set("X-Webhook-Signature", sign(body, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}
	return nil
}

func sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
