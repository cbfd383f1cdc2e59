package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/posprint/printbridge/internal/core"
	"github.com/posprint/printbridge/internal/escpos"
	"github.com/posprint/printbridge/internal/printer"
	"github.com/posprint/printbridge/internal/zpl"
)

const defaultLabelProfile = "shelf-ean8"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type PrintTextRequest struct {
	Text    string `json:"text" binding:"required"`
	Printer string `json:"printer"`
}

type PrintZPLRequest struct {
	ZPL     string `json:"zpl" binding:"required"`
	Printer string `json:"printer"`
}

type LabelItemRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type PrintLabelsRequest struct {
	Items   []LabelItemRequest `json:"items" binding:"required"`
	Profile string             `json:"profile"`
	Printer string             `json:"printer"`
}

type PrintTicketRequest struct {
	escpos.Ticket
	Printer string `json:"printer"`
}

type PrintQRRequest struct {
	Data       string `json:"data" binding:"required"`
	TextTop    string `json:"text_top"`
	TextBottom string `json:"text_bottom"`
	Printer    string `json:"printer"`
}

type JobAcceptedResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Printer string `json:"printer"`
	Count   int    `json:"count,omitempty"`
}

type PrintHandler struct {
	queue     *core.Queue
	directory *printer.Directory
	engine    *escpos.Engine
	generator *zpl.Generator
	profiles  map[string]zpl.LayoutProfile
	log       *logrus.Logger
}

func NewPrintHandler(queue *core.Queue, directory *printer.Directory, engine *escpos.Engine,
	profiles map[string]zpl.LayoutProfile, log *logrus.Logger) *PrintHandler {
	if profiles == nil {
		profiles = zpl.DefaultProfiles()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PrintHandler{
		queue:     queue,
		directory: directory,
		engine:    engine,
		generator: zpl.NewGenerator(),
		profiles:  profiles,
		log:       log,
	}
}

func (h *PrintHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/print/text", h.PrintText)
	r.POST("/print/zpl", h.PrintZPL)
	r.POST("/print/labels", h.PrintLabels)
	r.POST("/print/ticket", h.PrintTicket)
	r.POST("/print/qr", h.PrintQR)
}

// PrintText renders plain text into an ESC/POS document (init, text, cut)
// and enqueues it.
func (h *PrintHandler) PrintText(c *gin.Context) {
	var req PrintTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	buf := escpos.NewBuffer()
	buf.Init()
	for _, line := range strings.Split(req.Text, "\n") {
		buf.WriteText(strings.TrimSuffix(line, "\r"))
		buf.LineFeed()
	}
	buf.LineFeed()
	buf.LineFeed()
	buf.Cut()

	h.enqueue(c, core.JobKindText, req.Printer, buf.Bytes(), 0)
}

// PrintZPL enqueues a caller-supplied ZPL stream untouched. The service does
// not validate ZPL syntax; the payload is the caller's responsibility.
func (h *PrintHandler) PrintZPL(c *gin.Context) {
	var req PrintZPLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.enqueue(c, core.JobKindZPL, req.Printer, []byte(req.ZPL), 0)
}

func (h *PrintHandler) PrintLabels(c *gin.Context) {
	var req PrintLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	profileName := req.Profile
	if profileName == "" {
		profileName = defaultLabelProfile
	}
	profile, ok := h.profiles[profileName]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_profile",
			Message: "No label profile named " + profileName,
		})
		return
	}

	items := make([]zpl.LabelItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, zpl.LabelItem{
			Code:  item.Code,
			Name:  item.Name,
			Price: item.Price,
		})
	}

	labels, rendered := h.generator.BuildLabels(items, profile)
	if rendered == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "no_printable_labels",
			Message: "No item had a usable barcode value",
		})
		return
	}

	h.enqueue(c, core.JobKindZPL, req.Printer, []byte(labels), rendered)
}

func (h *PrintHandler) PrintTicket(c *gin.Context) {
	var req PrintTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	payload, err := h.engine.Render(&req.Ticket)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "ticket_error",
			Message: err.Error(),
		})
		return
	}

	h.enqueue(c, core.JobKindText, req.Printer, payload, 0)
}

func (h *PrintHandler) PrintQR(c *gin.Context) {
	var req PrintQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	payload, err := h.engine.RenderQR(req.Data, req.TextTop, req.TextBottom)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "qr_error",
			Message: err.Error(),
		})
		return
	}

	h.enqueue(c, core.JobKindText, req.Printer, payload, 0)
}

// enqueue resolves the target printer and hands the rendered payload to the
// queue. Everything after the 202 is asynchronous; delivery failures are
// observable through the job endpoint, never through this response.
func (h *PrintHandler) enqueue(c *gin.Context, kind core.JobKind, requested string, payload []byte, count int) {
	target := h.directory.Resolve(requested)
	if target == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "no_printer",
			Message: "No printer requested, preferred or installed as system default",
		})
		return
	}

	record, err := h.queue.Enqueue(kind, target, payload)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "queue_unavailable",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, JobAcceptedResponse{
		JobID:   record.ID,
		Status:  string(record.Status),
		Printer: record.Printer,
		Count:   count,
	})
}
