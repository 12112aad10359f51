// Package export renders finished slide sets to PNG images or a multi-page
// PDF. Rendering is a straight walk of each slide in z-order; the stage grid
// and selection overlay are never part of the output.
package export

import (
	"fmt"
	"strings"

	"carousel-studio/core"
)

type (
	// Format is the artifact kind.
	Format string

	// Quality selects the pixel ratio of the raster.
	Quality string
)

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"

	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Options are the export parameters. The pixel ratio follows from Quality and
// cannot be set on its own.
type Options struct {
	Format  Format  `json:"format"`
	Quality Quality `json:"quality"`
}

// PixelRatio maps quality to the raster multiplier: low 1, medium 2, high 3.
func (o Options) PixelRatio() int {
	switch o.Quality {
	case QualityLow:
		return 1
	case QualityHigh:
		return 3
	default:
		return 2
	}
}

// Size is the side length in pixels of each rendered slide.
func (o Options) Size() int {
	return core.CanvasSize * o.PixelRatio()
}

// ParseOptions validates user-supplied format and quality strings. Empty
// values select png and medium.
func ParseOptions(format, quality string) (Options, error) {
	o := Options{
		Format:  Format(strings.ToLower(strings.TrimSpace(format))),
		Quality: Quality(strings.ToLower(strings.TrimSpace(quality))),
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Quality == "" {
		o.Quality = QualityMedium
	}
	return o, o.Validate()
}

func (o Options) Validate() error {
	switch o.Format {
	case FormatPNG, FormatPDF:
	default:
		return fmt.Errorf("%w: unknown export format %q", core.ErrInvalidInput, o.Format)
	}
	switch o.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		return fmt.Errorf("%w: unknown export quality %q", core.ErrInvalidInput, o.Quality)
	}
	return nil
}
