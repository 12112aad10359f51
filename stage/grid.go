package stage

import "carousel-studio/core"

// GridSpacing is the default distance between grid lines, in canvas units.
const GridSpacing = 40.0

// GridLines returns the positions of the interior grid lines along one axis.
// The canvas is square, so the same positions serve both axes. A spacing of
// zero or less selects GridSpacing.
func GridLines(spacing float64) []float64 {
	if spacing <= 0 {
		spacing = GridSpacing
	}
	var lines []float64
	for v := spacing; v < core.CanvasSize; v += spacing {
		lines = append(lines, v)
	}
	return lines
}
