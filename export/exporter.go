package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"carousel-studio/core"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
)

const (
	pdfName     = "carousel.pdf"
	contentPNG  = "image/png"
	contentPDF  = "application/pdf"
	pdfProducer = "carousel-studio"
)

// Exporter turns slides into an Artifact.
type Exporter struct {
	raster Rasterizer
	log    logrus.FieldLogger
}

func NewExporter(r Rasterizer, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{raster: r, log: log}
}

// PNGName is the file name of slide i in a PNG export, 1-based and zero padded.
func PNGName(i int) string {
	return fmt.Sprintf("slide-%02d.png", i+1)
}

// Export renders slides in order. progress, when set, receives a fraction
// that never decreases and ends at 1 on success. A slide that fails to render
// aborts the export with a *core.ExportError naming its index; nothing
// partial is returned.
func (e *Exporter) Export(ctx context.Context, slides []core.Slide, opts Options, progress func(float64)) (*Artifact, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides to export", core.ErrExportFailed)
	}
	if progress == nil {
		progress = func(float64) {}
	}

	log := e.log.WithFields(logrus.Fields{
		"format":  opts.Format,
		"quality": opts.Quality,
		"slides":  len(slides),
	})
	start := time.Now()

	// PDF assembly counts as one more step after the slides.
	steps := len(slides)
	if opts.Format == FormatPDF {
		steps++
	}

	pages := make([][]byte, 0, len(slides))
	for i, slide := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := e.renderPNG(ctx, slide, opts.PixelRatio())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithFields(logrus.Fields{"slide": i, "error": err.Error()}).Error("Slide export failed")
			return nil, &core.ExportError{SlideIndex: i, Err: err}
		}
		pages = append(pages, data)
		progress(float64(i+1) / float64(steps))
	}

	art := &Artifact{Format: opts.Format, CreatedAt: time.Now().UTC()}
	switch opts.Format {
	case FormatPNG:
		for i, data := range pages {
			art.Files = append(art.Files, File{Name: PNGName(i), ContentType: contentPNG, Data: data})
		}
	case FormatPDF:
		data, err := assemblePDF(pages)
		if err != nil {
			log.WithField("error", err.Error()).Error("PDF assembly failed")
			return nil, fmt.Errorf("%w: %v", core.ErrExportFailed, err)
		}
		art.Files = []File{{Name: pdfName, ContentType: contentPDF, Data: data}}
		progress(1)
	}

	log.WithFields(logrus.Fields{
		"bytes":    art.Size(),
		"duration": time.Since(start).String(),
	}).Info("Export complete")
	return art, nil
}

func (e *Exporter) renderPNG(ctx context.Context, slide core.Slide, ratio int) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rasterizer panic: %v", r)
		}
	}()
	img, err := e.raster.Rasterize(ctx, slide, ratio)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("rasterizer returned no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// assemblePDF places one full-bleed PNG per square page. Pages are sized in
// points at the logical canvas size regardless of pixel ratio.
func assemblePDF(pages [][]byte) ([]byte, error) {
	side := float64(core.CanvasSize)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: side, Ht: side},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetProducer(pdfProducer, false)

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	for i, data := range pages {
		name := fmt.Sprintf("slide-%02d", i+1)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, side, side, false, opt, 0, "")
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
