package zpl

// DotsPerMM returns the printhead dot density for a given DPI. The common
// thermal printheads land on whole numbers; anything else falls back to the
// exact conversion.
func DotsPerMM(dpi int) float64 {
	switch dpi {
	case 203:
		return 8.0
	case 300:
		return 12.0
	case 600:
		return 24.0
	default:
		return float64(dpi) / 25.4
	}
}

// MMToDots converts a physical millimeter measure to printer dots.
func MMToDots(mm float64, dpi int) int {
	return int(mm * DotsPerMM(dpi))
}

// DotsToMM converts printer dots back to millimeters.
func DotsToMM(dots int, dpi int) float64 {
	return float64(dots) / DotsPerMM(dpi)
}
