package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"carousel-studio/core"

	"github.com/disintegration/gift"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

// Rasterizer renders one slide to an image of side CanvasSize*ratio.
type Rasterizer interface {
	Rasterize(ctx context.Context, slide core.Slide, ratio int) (image.Image, error)
}

var (
	placeholderBg = color.NRGBA{0xe2, 0xe8, 0xf0, 0xff}
	placeholderFg = color.NRGBA{0x94, 0xa3, 0xb8, 0xff}
)

// CanvasRasterizer draws slides with gg. Coordinates are scaled by hand
// rather than through the context matrix so that stroke widths and glyphs
// are rendered at the target resolution.
type CanvasRasterizer struct {
	Assets AssetResolver
}

func NewCanvasRasterizer(assets AssetResolver) *CanvasRasterizer {
	if assets == nil {
		assets = DataURLResolver{}
	}
	return &CanvasRasterizer{Assets: assets}
}

func (r *CanvasRasterizer) Rasterize(ctx context.Context, slide core.Slide, ratio int) (image.Image, error) {
	if ratio < 1 {
		ratio = 1
	}
	k := float64(ratio)
	side := core.CanvasSize * ratio
	dc := gg.NewContext(side, side)

	bg, ok := parseColor(slide.BackgroundColor)
	if !ok {
		bg, _ = parseColor(core.DefaultBackground)
	}
	dc.SetColor(bg)
	dc.Clear()

	for _, el := range slide.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := core.Match(el,
			func(t *core.TextElement) error { return drawText(dc, t, k) },
			func(s *core.ShapeElement) error { drawShape(dc, s, k); return nil },
			func(img *core.ImageElement) error { return r.drawImage(ctx, dc, img, k) },
		)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", el.ElementID(), err)
		}
	}
	return dc.Image(), nil
}

// rotated runs draw with the context rotated about the element centre.
func rotated(dc *gg.Context, el core.Element, k float64, draw func()) {
	cx, cy := el.Bounds().Center()
	dc.Push()
	if a := el.Angle(); a != 0 {
		dc.RotateAbout(gg.Radians(a), cx*k, cy*k)
	}
	draw()
	dc.Pop()
}

// visibleRect returns the part of a lw x lh layer, placed at (ox, oy) and
// rotated with el, that lands on the slide. Layers are only allocated for
// this region. The result is in layer pixels and may be empty.
func visibleRect(dc *gg.Context, el core.Element, k, ox, oy, lw, lh float64) image.Rectangle {
	cx, cy := el.Bounds().Center()
	cx, cy = cx*k, cy*k
	sin, cos := math.Sincos(-gg.Radians(el.Angle()))
	side := [2]float64{float64(dc.Width()), float64(dc.Height())}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, px := range [2]float64{0, side[0]} {
		for _, py := range [2]float64{0, side[1]} {
			dx, dy := px-cx, py-cy
			lx := dx*cos - dy*sin + cx - ox
			ly := dx*sin + dy*cos + cy - oy
			minX, maxX = math.Min(minX, lx), math.Max(maxX, lx)
			minY, maxY = math.Min(minY, ly), math.Max(maxY, ly)
		}
	}
	view := image.Rect(
		int(math.Floor(math.Max(minX, 0))), int(math.Floor(math.Max(minY, 0))),
		int(math.Ceil(math.Min(maxX, lw))), int(math.Ceil(math.Min(maxY, lh))),
	)
	if view.Dx() <= 0 || view.Dy() <= 0 {
		return image.Rectangle{}
	}
	return view
}

func drawShape(dc *gg.Context, s *core.ShapeElement, k float64) {
	x, y, w, h := s.X*k, s.Y*k, s.Width*k, s.Height*k
	rotated(dc, s, k, func() {
		switch s.ShapeType {
		case core.ShapeRect:
			if s.CornerRadius > 0 {
				dc.DrawRoundedRectangle(x, y, w, h, s.CornerRadius*k)
			} else {
				dc.DrawRectangle(x, y, w, h)
			}
		case core.ShapeCircle:
			dc.DrawCircle(x+w/2, y+h/2, math.Min(w, h)/2)
		case core.ShapeEllipse:
			dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
		case core.ShapeTriangle:
			dc.MoveTo(x+w/2, y)
			dc.LineTo(x+w, y+h)
			dc.LineTo(x, y+h)
			dc.ClosePath()
		case core.ShapeLine:
			c := s.Stroke
			if c == "" {
				c = s.Fill
			}
			width := s.StrokeWidth
			if width <= 0 {
				width = 2
			}
			if col, ok := parseColor(c); ok {
				dc.SetColor(col)
				dc.SetLineWidth(width * k)
				dc.DrawLine(x, y+h/2, x+w, y+h/2)
				dc.Stroke()
			}
			return
		default:
			// Library SVG markup has no raster path.
			drawPlaceholder(dc, x, y, w, h, k)
			return
		}
		fillAndStroke(dc, s, k)
	})
}

func fillAndStroke(dc *gg.Context, s *core.ShapeElement, k float64) {
	fill, hasFill := parseColor(s.Fill)
	stroke, hasStroke := parseColor(s.Stroke)
	hasStroke = hasStroke && s.StrokeWidth > 0
	if hasFill {
		dc.SetColor(fill)
		if hasStroke {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if hasStroke {
		dc.SetColor(stroke)
		dc.SetLineWidth(s.StrokeWidth * k)
		dc.Stroke()
	}
	dc.ClearPath()
}

func drawPlaceholder(dc *gg.Context, x, y, w, h, k float64) {
	dc.SetColor(placeholderBg)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
	dc.SetColor(placeholderFg)
	dc.SetLineWidth(2 * k)
	dc.DrawLine(x, y, x+w, y+h)
	dc.DrawLine(x+w, y, x, y+h)
	dc.Stroke()
}

func (r *CanvasRasterizer) drawImage(ctx context.Context, dc *gg.Context, el *core.ImageElement, k float64) error {
	x, y, w, h := el.X*k, el.Y*k, el.Width*k, el.Height*k
	if el.Src == "" {
		rotated(dc, el, k, func() { drawPlaceholder(dc, x, y, w, h, k) })
		return nil
	}

	data, err := r.Assets.Resolve(ctx, el.Src)
	var src image.Image
	if err == nil {
		src, err = decodeImage(data)
	}
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrUnsupportedAsset), errors.Is(err, ErrAssetRefused):
		rotated(dc, el, k, func() { drawPlaceholder(dc, x, y, w, h, k) })
		return nil
	case err != nil:
		return fmt.Errorf("load image: %w", err)
	}

	pw, ph := int(math.Round(w)), int(math.Round(h))
	if pw < 1 || ph < 1 {
		return nil
	}
	ox, oy := math.Round(x), math.Round(y)
	view := visibleRect(dc, el, k, ox, oy, float64(pw), float64(ph))
	if view.Empty() {
		return nil
	}

	// Cover the box and crop the overflow, centred. Only the visible part of
	// the covered box is resampled.
	sb := src.Bounds()
	scale := math.Max(float64(pw)/float64(sb.Dx()), float64(ph)/float64(sb.Dy()))
	offX := (float64(sb.Dx())*scale - float64(pw)) / 2
	offY := (float64(sb.Dy())*scale - float64(ph)) / 2
	crop := image.Rect(
		int(math.Floor((offX+float64(view.Min.X))/scale)), int(math.Floor((offY+float64(view.Min.Y))/scale)),
		int(math.Ceil((offX+float64(view.Max.X))/scale)), int(math.Ceil((offY+float64(view.Max.Y))/scale)),
	).Add(sb.Min).Intersect(sb)
	if crop.Empty() {
		return nil
	}
	g := gift.New(
		gift.Crop(crop),
		gift.Resize(view.Dx(), view.Dy(), gift.LanczosResampling),
	)
	dst := image.NewNRGBA(g.Bounds(sb))
	g.Draw(dst, src)

	rotated(dc, el, k, func() {
		dc.DrawImage(dst, int(ox)+view.Min.X, int(oy)+view.Min.Y)
	})
	return nil
}

func drawText(dc *gg.Context, t *core.TextElement, k float64) error {
	col, ok := parseColor(t.Fill)
	if !ok || t.Text == "" {
		return nil
	}
	fs := t.FontSize
	if fs <= 0 {
		fs = 16
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	face, err := fontFace(t.FontWeight, fs*k)
	if err != nil {
		return err
	}
	defer face.Close()

	w := int(math.Ceil(t.Width * k))
	if w < 1 {
		return nil
	}
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	lines := measure.WordWrap(t.Text, float64(w))

	// The layer grows past the box so overflowing lines are not clipped.
	height := math.Max(t.Height, fs+float64(len(lines))*fs*lh)
	ox, oy := math.Round(t.X*k), math.Round(t.Y*k)
	view := visibleRect(dc, t, k, ox, oy, float64(w), math.Ceil(height*k))
	if view.Empty() {
		return nil
	}
	layer := gg.NewContext(view.Dx(), view.Dy())
	layer.SetFontFace(face)
	layer.SetColor(col)

	x, ax := 0.0, 0.0
	switch t.Align {
	case "center":
		x, ax = float64(w)/2, 0.5
	case "right":
		x, ax = float64(w), 1
	}
	dx, dy := float64(view.Min.X), float64(view.Min.Y)
	for i, line := range lines {
		layer.DrawStringAnchored(line, x-dx, (fs+float64(i)*fs*lh)*k-dy, ax, 0)
	}

	rotated(dc, t, k, func() {
		dc.DrawImage(layer.Image(), int(ox)+view.Min.X, int(oy)+view.Min.Y)
	})
	return nil
}

var fonts struct {
	once                  sync.Once
	regular, medium, bold *truetype.Font
	err                   error
}

func loadFonts() error {
	fonts.once.Do(func() {
		if fonts.regular, fonts.err = truetype.Parse(goregular.TTF); fonts.err != nil {
			return
		}
		if fonts.medium, fonts.err = truetype.Parse(gomedium.TTF); fonts.err != nil {
			return
		}
		fonts.bold, fonts.err = truetype.Parse(gobold.TTF)
	})
	return fonts.err
}

// fontFace maps CSS font weights onto the Go font family.
func fontFace(weight string, size float64) (font.Face, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	f := fonts.regular
	switch weight {
	case "bold", "bolder":
		f = fonts.bold
	default:
		if n, err := strconv.Atoi(weight); err == nil {
			switch {
			case n >= 700:
				f = fonts.bold
			case n >= 500:
				f = fonts.medium
			}
		}
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}
