package zpl

import (
	"fmt"
	"strings"
)

type Symbology string

const (
	SymbologyCode128 Symbology = "code128"
	SymbologyEAN8    Symbology = "ean8"
)

const maxPriceChars = 16

// Point is a field origin on the label, in dots.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// LayoutProfile describes one label format. Dimensions may be given either
// directly in dots or in millimeters; when both are set the dot values win.
type LayoutProfile struct {
	Name          string    `yaml:"name" json:"name"`
	WidthMM       float64   `yaml:"width_mm" json:"width_mm"`
	HeightMM      float64   `yaml:"height_mm" json:"height_mm"`
	WidthDots     int       `yaml:"width_dots" json:"width_dots"`
	HeightDots    int       `yaml:"height_dots" json:"height_dots"`
	DPI           int       `yaml:"dpi" json:"dpi"`
	Symbology     Symbology `yaml:"symbology" json:"symbology"`
	ModuleWidth   int       `yaml:"module_width" json:"module_width"`
	WideRatio     float64   `yaml:"wide_ratio" json:"wide_ratio"`
	BarHeight     int       `yaml:"bar_height" json:"bar_height"`
	BarcodeOrigin Point     `yaml:"barcode_origin" json:"barcode_origin"`
	TextOrigin    Point     `yaml:"text_origin" json:"text_origin"`
	FontHeight    int       `yaml:"font_height" json:"font_height"`
	Rotated       bool      `yaml:"rotated" json:"rotated"`
	ShowPrice     bool      `yaml:"show_price" json:"show_price"`
	DebugBox      bool      `yaml:"debug_box" json:"debug_box"`
}

// LabelItem is one requested label. Code is required; Name and Price only
// matter for profiles that render human-readable text.
type LabelItem struct {
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
	Price string `json:"price,omitempty"`
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// DefaultProfiles returns the built-in label formats, keyed by name.
func DefaultProfiles() map[string]LayoutProfile {
	return map[string]LayoutProfile{
		"shelf-ean8": {
			Name:          "shelf-ean8",
			WidthMM:       40,
			HeightMM:      30,
			DPI:           203,
			Symbology:     SymbologyEAN8,
			ModuleWidth:   3,
			WideRatio:     3.0,
			BarHeight:     80,
			BarcodeOrigin: Point{X: 60, Y: 40},
			TextOrigin:    Point{X: 60, Y: 160},
			FontHeight:    28,
			ShowPrice:     true,
		},
		"product-128": {
			Name:          "product-128",
			WidthDots:     560,
			HeightDots:    260,
			DPI:           203,
			Symbology:     SymbologyCode128,
			ModuleWidth:   2,
			WideRatio:     3.0,
			BarHeight:     100,
			BarcodeOrigin: Point{X: 40, Y: 30},
			TextOrigin:    Point{X: 40, Y: 160},
			FontHeight:    30,
			ShowPrice:     true,
		},
		"product-128-rotated": {
			Name:          "product-128-rotated",
			WidthDots:     260,
			HeightDots:    560,
			DPI:           203,
			Symbology:     SymbologyCode128,
			ModuleWidth:   2,
			WideRatio:     3.0,
			BarHeight:     100,
			BarcodeOrigin: Point{X: 30, Y: 40},
			TextOrigin:    Point{X: 160, Y: 40},
			FontHeight:    30,
			Rotated:       true,
		},
	}
}

func (p LayoutProfile) widthDots() int {
	if p.WidthDots > 0 {
		return p.WidthDots
	}
	return MMToDots(p.WidthMM, p.dpi())
}

func (p LayoutProfile) heightDots() int {
	if p.HeightDots > 0 {
		return p.HeightDots
	}
	return MMToDots(p.HeightMM, p.dpi())
}

func (p LayoutProfile) dpi() int {
	if p.DPI > 0 {
		return p.DPI
	}
	return 203
}

// BuildLabels renders one ^XA..^XZ block per valid item and concatenates
// them with no separator. Items with an empty code are skipped, never failed;
// the second return value is the number of labels actually rendered. A zero
// count with a non-empty input means nothing was printable and the caller
// should treat the request as invalid.
func (g *Generator) BuildLabels(items []LabelItem, profile LayoutProfile) (string, int) {
	var sb strings.Builder
	rendered := 0

	for _, item := range items {
		if strings.TrimSpace(item.Code) == "" {
			continue
		}
		g.writeLabel(&sb, item, profile)
		rendered++
	}

	return sb.String(), rendered
}

func (g *Generator) writeLabel(sb *strings.Builder, item LabelItem, p LayoutProfile) {
	width := p.widthDots()
	height := p.heightDots()

	orientation := "N"
	if p.Rotated {
		orientation = "R"
	}

	payload := item.Code
	if p.Symbology == SymbologyEAN8 {
		// EAN-8 payloads are always derived, never the raw input.
		payload = Ean8(item.Code)
	}

	sb.WriteString("^XA\n")
	sb.WriteString(fmt.Sprintf("^PW%d\n", width))
	sb.WriteString(fmt.Sprintf("^LL%d\n", height))
	sb.WriteString("^LH0,0\n")

	sb.WriteString(fmt.Sprintf("^FO%d,%d^BY%d,%.1f,%d",
		p.BarcodeOrigin.X, p.BarcodeOrigin.Y, p.ModuleWidth, p.WideRatio, p.BarHeight))
	switch p.Symbology {
	case SymbologyEAN8:
		sb.WriteString(fmt.Sprintf("^B8%s,%d,Y,N", orientation, p.BarHeight))
	default:
		sb.WriteString(fmt.Sprintf("^BC%s,%d,Y,N,N", orientation, p.BarHeight))
	}
	sb.WriteString(fmt.Sprintf("^FD%s^FS\n", SanitizeFieldData(payload)))

	if text := g.readableText(item, p); text != "" {
		sb.WriteString(fmt.Sprintf("^FO%d,%d^A0%s,%d,%d^FD%s^FS\n",
			p.TextOrigin.X, p.TextOrigin.Y, orientation, p.fontHeight(), p.fontHeight(),
			SanitizeFieldData(text)))
	}

	if p.DebugBox {
		sb.WriteString(fmt.Sprintf("^FO0,0^GB%d,%d,2^FS\n", width, height))
	}

	sb.WriteString("^XZ")
}

func (g *Generator) readableText(item LabelItem, p LayoutProfile) string {
	parts := make([]string, 0, 2)
	if item.Name != "" {
		parts = append(parts, item.Name)
	}
	if p.ShowPrice && item.Price != "" {
		price := item.Price
		if len(price) > maxPriceChars {
			price = price[:maxPriceChars]
		}
		parts = append(parts, price)
	}
	return strings.Join(parts, " ")
}

func (p LayoutProfile) fontHeight() int {
	if p.FontHeight > 0 {
		return p.FontHeight
	}
	return 28
}

// SanitizeFieldData strips characters that would terminate or corrupt a ^FD
// field: the ZPL caret and tilde control prefixes and line breaks.
func SanitizeFieldData(v string) string {
	replacer := strings.NewReplacer(
		"^", " ",
		"~", " ",
		"\n", " ",
		"\r", " ",
	)
	return strings.TrimSpace(replacer.Replace(v))
}
