package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/posprint/printbridge/internal/core"
	"github.com/posprint/printbridge/internal/escpos"
	"github.com/posprint/printbridge/internal/printer"
)

type captureTransport struct {
	mu    sync.Mutex
	sends [][]byte
}

func (t *captureTransport) Send(printerName string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, append([]byte(nil), data...))
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *core.Queue, *captureTransport) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := test.NewNullLogger()
	transport := &captureTransport{}
	queue := core.NewQueue(transport, nil, log)
	queue.Start()
	t.Cleanup(queue.Stop)

	directory := printer.NewDirectory(nil, log)
	engine := escpos.NewEngine(48, 384, false, log)

	router := gin.New()
	api := router.Group("/api")
	NewPrintHandler(queue, directory, engine, nil, log).RegisterRoutes(api)
	NewJobHandler(queue).RegisterRoutes(api)
	NewPrinterHandler(directory, nil).RegisterRoutes(api)

	return router, queue, transport
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPrintTextAcceptsAndQueues(t *testing.T) {
	router, queue, transport := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/print/text",
		`{"text":"hello\nworld","printer":"tickets"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp JobAcceptedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.JobID == "" || resp.Status != "queued" || resp.Printer != "tickets" {
		t.Fatalf("resp = %+v", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := queue.Job(resp.JobID)
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if record.Status == core.JobStatusDelivered {
			transport.mu.Lock()
			defer transport.mu.Unlock()
			if len(transport.sends) != 1 {
				t.Fatalf("sends = %d", len(transport.sends))
			}
			payload := transport.sends[0]
			if !strings.Contains(string(payload), "hello") {
				t.Error("payload missing text")
			}
			if !strings.HasSuffix(string(payload), string(escpos.CutCommand)) {
				t.Error("text document must end with a cut")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("job never delivered")
}

func TestPrintTextWithoutPrinterFails(t *testing.T) {
	router, _, _ := setupRouter(t)

	// no request printer, no preference, no discovered system default
	w := doJSON(router, http.MethodPost, "/api/print/text", `{"text":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no_printer") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPrintLabelsAllInvalidItemsIs400(t *testing.T) {
	router, _, transport := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/print/labels",
		`{"items":[{"code":"","name":"n"},{"code":"   ","name":"m"}],"printer":"labels"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "no_printable_labels") {
		t.Errorf("body = %s", w.Body.String())
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sends) != 0 {
		t.Error("nothing should reach the transport when no label renders")
	}
}

func TestPrintLabelsQueuesZPL(t *testing.T) {
	router, queue, _ := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/print/labels",
		`{"items":[{"code":"ABC123456","name":"Widget","price":"9.99"}],"printer":"labels"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp JobAcceptedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	record, err := queue.Job(resp.JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if record.Kind != core.JobKindZPL {
		t.Errorf("kind = %s, want zpl", record.Kind)
	}
}

func TestPrintLabelsUnknownProfile(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/print/labels",
		`{"items":[{"code":"123"}],"profile":"bogus","printer":"labels"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown_profile") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPrintTicketValidation(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/print/ticket",
		`{"header":["SHOP"],"items":[],"printer":"tickets"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ticket_error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetJobNotFound(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/jobs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetQueueStats(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/jobs/queue", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var stats core.QueueStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestListPrintersShape(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/printers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp PrinterListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestSetPreferredUnknownIs400(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doJSON(router, http.MethodPut, "/api/printers/preferred", `{"name":"ghost"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "unknown_printer") {
		t.Errorf("body = %s", w.Body.String())
	}
}
