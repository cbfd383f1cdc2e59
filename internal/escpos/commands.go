package escpos

import "bytes"

// ESC/POS control bytes.
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	NL  byte = 0x0A
)

// Alignment values for ESC a.
const (
	AlignLeft   byte = 0
	AlignCenter byte = 1
	AlignRight  byte = 2
)

// CutCommand is the partial-cut sequence appended after every ticket.
var CutCommand = []byte{GS, 'V', 66, 0}

// Buffer accumulates ESC/POS command bytes for one document.
type Buffer struct {
	buf bytes.Buffer
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Init resets the printer and selects code page 850 so Latin accents have a
// chance of rendering on printers that support it.
func (b *Buffer) Init() {
	b.buf.Write([]byte{ESC, '@'})
	b.buf.Write([]byte{ESC, 't', 2})
}

// WriteText appends text with diacritics folded to ASCII. Cheap printers
// frequently ship with incomplete code pages, so the fold is unconditional.
func (b *Buffer) WriteText(text string) {
	b.buf.WriteString(foldDiacritics(text))
}

func (b *Buffer) WriteRaw(data []byte) {
	b.buf.Write(data)
}

func (b *Buffer) LineFeed() {
	b.buf.WriteByte(NL)
}

func (b *Buffer) SetAlign(a byte) {
	b.buf.Write([]byte{ESC, 'a', a})
}

func (b *Buffer) SetEmphasize(on bool) {
	var e byte
	if on {
		e = 1
	}
	b.buf.Write([]byte{ESC, 'E', e})
}

// SetSize selects character width/height multipliers, both in 1..8.
func (b *Buffer) SetSize(width, height byte) {
	size := ((width - 1) << 4) | (height - 1)
	b.buf.Write([]byte{GS, '!', size})
}

func (b *Buffer) Cut() {
	b.buf.Write(CutCommand)
}

func (b *Buffer) CashDrawer() {
	b.buf.Write([]byte{ESC, 'p', 0, 25, 250})
}

func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Buffer) Len() int {
	return b.buf.Len()
}

var diacriticMap = map[rune]rune{
	'á': 'a', 'Á': 'A',
	'é': 'e', 'É': 'E',
	'í': 'i', 'Í': 'I',
	'ó': 'o', 'Ó': 'O',
	'ú': 'u', 'Ú': 'U',
	'ü': 'u', 'Ü': 'U',
	'ñ': 'n', 'Ñ': 'N',
	'¿': '?', '¡': '!',
	'º': 'o', 'ª': 'a',
	'€': 'E',
}

func foldDiacritics(text string) string {
	var result []rune
	for _, r := range text {
		switch {
		case r < 128:
			result = append(result, r)
		default:
			if repl, ok := diacriticMap[r]; ok {
				result = append(result, repl)
			} else {
				result = append(result, ' ')
			}
		}
	}
	return string(result)
}
