package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posprint/printbridge/internal/printer"
)

type PrinterListResponse struct {
	Installed     []string `json:"installed"`
	SystemDefault string   `json:"system_default"`
	Preferred     string   `json:"preferred"`
}

type SetPreferredRequest struct {
	Name string `json:"name" binding:"required"`
}

type PrinterHandler struct {
	directory *printer.Directory
	auth      gin.HandlerFunc
}

// NewPrinterHandler wires the directory endpoints. The auth middleware guards
// the mutating routes; read-only routes stay open.
func NewPrinterHandler(directory *printer.Directory, auth gin.HandlerFunc) *PrinterHandler {
	return &PrinterHandler{directory: directory, auth: auth}
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printers", h.ListPrinters)
	r.GET("/printers/default", h.GetDefault)
	r.GET("/printers/preferred", h.GetPreferred)

	if h.auth != nil {
		r.PUT("/printers/preferred", h.auth, h.SetPreferred)
		r.POST("/printers/reload", h.auth, h.Reload)
	} else {
		r.PUT("/printers/preferred", h.SetPreferred)
		r.POST("/printers/reload", h.Reload)
	}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, PrinterListResponse{
		Installed:     h.directory.ListInstalled(),
		SystemDefault: h.directory.SystemDefault(),
		Preferred:     h.directory.Preferred(),
	})
}

func (h *PrinterHandler) GetDefault(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.directory.SystemDefault()})
}

func (h *PrinterHandler) GetPreferred(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.directory.Preferred()})
}

func (h *PrinterHandler) SetPreferred(c *gin.Context) {
	var req SetPreferredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.directory.SetPreferred(c.Request.Context(), req.Name); err != nil {
		if errors.Is(err, printer.ErrUnknownPrinter) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "unknown_printer",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "store_error",
			Message: "Failed to persist printer preference",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

func (h *PrinterHandler) Reload(c *gin.Context) {
	if err := h.directory.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "discovery_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PrinterListResponse{
		Installed:     h.directory.ListInstalled(),
		SystemDefault: h.directory.SystemDefault(),
		Preferred:     h.directory.Preferred(),
	})
}
