package escpos

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// DefaultColumnWidth is the character column count of a standard 80mm
	// receipt printer in font A.
	DefaultColumnWidth = 48

	qrImageSize = 256
)

var (
	ErrNoItems            = errors.New("escpos: ticket has no line items")
	ErrMissingDescription = errors.New("escpos: line item is missing a description")
	ErrInvalidQuantity    = errors.New("escpos: line item quantity must be positive")
	ErrMissingQRData      = errors.New("escpos: qr payload is empty")
)

// TicketItem is one sold line on a receipt.
type TicketItem struct {
	Description     string   `json:"description"`
	Quantity        int      `json:"quantity"`
	UnitPrice       float64  `json:"unit_price"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

// Ticket is the structured receipt model submitted by clients. Monetary
// totals are always recomputed server-side, never taken from the payload.
type Ticket struct {
	Header          []string     `json:"header"`
	LogoBase64      string       `json:"logo,omitempty"`
	Date            string       `json:"date,omitempty"`
	Number          string       `json:"number,omitempty"`
	Client          string       `json:"client,omitempty"`
	Items           []TicketItem `json:"items"`
	DiscountPercent *float64     `json:"discount_percent,omitempty"`
	Footer          []string     `json:"footer,omitempty"`
	QRData          string       `json:"qr_data,omitempty"`
}

// Engine renders tickets into ESC/POS byte streams.
type Engine struct {
	columnWidth int
	paperDots   int
	dither      bool
	log         *logrus.Logger
}

func NewEngine(columnWidth, paperDots int, applyDither bool, log *logrus.Logger) *Engine {
	if columnWidth <= 0 {
		columnWidth = DefaultColumnWidth
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		columnWidth: columnWidth,
		paperDots:   paperDots,
		dither:      applyDither,
		log:         log,
	}
}

// CenterText pads text on the left so it sits centered in width columns,
// with leftover slack falling to the right. The result is never padded on
// the right; text at or beyond width is truncated to exactly width. Width is
// measured in runes: diacritic folding maps every rune to one printed column.
func CenterText(text string, width int) string {
	runes := []rune(text)
	if len(runes) >= width {
		return string(runes[:width])
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + text
}

// AlignRightText pads text on the left so it ends flush at width columns,
// truncating when it is already at or beyond width.
func AlignRightText(text string, width int) string {
	runes := []rune(text)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return strings.Repeat(" ", width-len(runes)) + text
}

// Render lays out the full receipt and returns the device byte stream,
// terminated by the cut command.
func (e *Engine) Render(t *Ticket) ([]byte, error) {
	if len(t.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range t.Items {
		if strings.TrimSpace(item.Description) == "" {
			return nil, ErrMissingDescription
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %q has quantity %d", ErrInvalidQuantity, item.Description, item.Quantity)
		}
	}

	buf := NewBuffer()
	buf.Init()

	if t.LogoBase64 != "" {
		e.writeOptionalImageFromBase64(buf, t.LogoBase64, "logo")
	}

	for _, line := range t.Header {
		buf.WriteText(CenterText(line, e.columnWidth))
		buf.LineFeed()
	}

	e.writeSeparator(buf)
	if t.Date != "" {
		buf.WriteText("Date: " + t.Date)
		buf.LineFeed()
	}
	if t.Number != "" {
		buf.WriteText("Ticket: " + t.Number)
		buf.LineFeed()
	}
	if t.Client != "" {
		buf.WriteText("Client: " + t.Client)
		buf.LineFeed()
	}
	e.writeSeparator(buf)

	subtotal := 0.0
	for _, item := range t.Items {
		subtotal += e.writeItem(buf, item)
	}

	e.writeSeparator(buf)
	e.writeTotals(buf, subtotal, t.DiscountPercent)

	if len(t.Footer) > 0 {
		buf.LineFeed()
		for _, line := range t.Footer {
			buf.WriteText(CenterText(line, e.columnWidth))
			buf.LineFeed()
		}
	}

	if t.QRData != "" {
		e.writeOptionalQR(buf, t.QRData)
	}

	buf.LineFeed()
	buf.LineFeed()
	buf.Cut()

	return buf.Bytes(), nil
}

// RenderQR produces a standalone QR document with optional text above and
// below. Unlike the optional ticket sections, a QR failure here is an error:
// the code is the whole point of the document.
func (e *Engine) RenderQR(data, textTop, textBottom string) ([]byte, error) {
	if strings.TrimSpace(data) == "" {
		return nil, ErrMissingQRData
	}

	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	buf := NewBuffer()
	buf.Init()

	if textTop != "" {
		buf.WriteText(CenterText(textTop, e.columnWidth))
		buf.LineFeed()
		buf.LineFeed()
	}

	if err := e.writeRaster(buf, qr.Image(qrImageSize)); err != nil {
		return nil, err
	}

	if textBottom != "" {
		buf.LineFeed()
		buf.WriteText(CenterText(textBottom, e.columnWidth))
		buf.LineFeed()
	}

	buf.LineFeed()
	buf.LineFeed()
	buf.Cut()

	return buf.Bytes(), nil
}

func (e *Engine) writeItem(buf *Buffer, item TicketItem) float64 {
	desc := item.Description
	if runes := []rune(desc); len(runes) > e.columnWidth {
		// No room for an ellipsis on very narrow paper; just cut.
		if e.columnWidth > 3 {
			desc = string(runes[:e.columnWidth-3]) + "..."
		} else {
			desc = string(runes[:e.columnWidth])
		}
	}
	buf.WriteText(desc)
	buf.LineFeed()

	lineTotal := float64(item.Quantity) * item.UnitPrice
	fragment := fmt.Sprintf("%d x %s", item.Quantity, money(item.UnitPrice))
	if item.DiscountPercent != nil {
		lineTotal *= 1 - *item.DiscountPercent/100
		fragment += fmt.Sprintf(" -%.0f%%", *item.DiscountPercent)
	}

	total := money(lineTotal)
	pad := e.columnWidth - len(fragment) - len(total)
	if pad < 1 {
		pad = 1
	}
	buf.WriteText(fragment + strings.Repeat(" ", pad) + total)
	buf.LineFeed()

	return lineTotal
}

func (e *Engine) writeTotals(buf *Buffer, subtotal float64, discountPercent *float64) {
	total := subtotal

	buf.WriteText(AlignRightText("Subtotal: "+money(subtotal), e.columnWidth))
	buf.LineFeed()

	if discountPercent != nil {
		discount := subtotal * *discountPercent / 100
		total = subtotal - discount
		buf.WriteText(AlignRightText(
			fmt.Sprintf("Discount (%.0f%%): -%s", *discountPercent, money(discount)),
			e.columnWidth))
		buf.LineFeed()
	}

	buf.SetEmphasize(true)
	buf.WriteText(AlignRightText("TOTAL: "+money(total), e.columnWidth))
	buf.LineFeed()
	buf.SetEmphasize(false)
}

func (e *Engine) writeSeparator(buf *Buffer) {
	buf.WriteText(strings.Repeat("-", e.columnWidth))
	buf.LineFeed()
}

// writeOptionalImageFromBase64 renders an embedded image section. Decode
// failures only drop the section; the ticket still prints, and the operator
// gets a diagnostic log entry instead of a silent no-op.
func (e *Engine) writeOptionalImageFromBase64(buf *Buffer, payload, section string) {
	img, err := DecodeBase64Image(payload)
	if err != nil {
		e.log.WithError(err).WithField("section", section).
			Warn("ticket image skipped: decode failed")
		return
	}
	if err := e.writeRaster(buf, img); err != nil {
		e.log.WithError(err).WithField("section", section).
			Warn("ticket image skipped: raster encoding failed")
	}
}

func (e *Engine) writeOptionalQR(buf *Buffer, data string) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		e.log.WithError(err).Warn("ticket qr skipped: generation failed")
		return
	}
	if err := e.writeRaster(buf, qr.Image(qrImageSize)); err != nil {
		e.log.WithError(err).Warn("ticket qr skipped: raster encoding failed")
	}
}

func (e *Engine) writeRaster(buf *Buffer, img image.Image) error {
	prepared := PrepareForPaper(img, e.paperDots, e.dither)
	raster, err := EncodeRaster(prepared)
	if err != nil {
		return err
	}
	buf.SetAlign(AlignCenter)
	buf.LineFeed()
	buf.WriteRaw(raster)
	buf.LineFeed()
	buf.SetAlign(AlignLeft)
	return nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
