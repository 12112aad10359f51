package stage

import (
	"bytes"
	"strings"
	"testing"

	"carousel-studio/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 1e-9

func TestViewport_Scale(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
		want float64
	}{
		{"height bound", Viewport{ContainerWidth: 800, ContainerHeight: 540, Zoom: 1}, 0.5},
		{"capped at 0.9", Viewport{ContainerWidth: 4000, ContainerHeight: 4000, Zoom: 1}, 0.9},
		{"zoomed", Viewport{ContainerWidth: 540, ContainerHeight: 1080, Zoom: 2}, 1.0},
		{"zoom clamped high", Viewport{ContainerWidth: 540, ContainerHeight: 540, Zoom: 10}, 1.5},
		{"zoom clamped low", Viewport{ContainerWidth: 1080, ContainerHeight: 1080, Zoom: 0.01}, 0.225},
		{"zero zoom means 1", Viewport{ContainerWidth: 540, ContainerHeight: 540}, 0.5},
		{"empty container", Viewport{ContainerWidth: 0, ContainerHeight: 600, Zoom: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.vp.Scale(), delta)
		})
	}
}

func TestViewport_ResizeAndZoom(t *testing.T) {
	vp := NewViewport(540, 540)
	assert.InDelta(t, 0.5, vp.Scale(), delta)

	vp = vp.Resize(1080, 270)
	assert.InDelta(t, 0.25, vp.Scale(), delta)

	vp = vp.SetZoom(2)
	assert.InDelta(t, 0.5, vp.Scale(), delta)
	assert.Equal(t, 2.0, vp.Zoom)

	assert.Equal(t, MaxZoom, vp.SetZoom(99).Zoom)
}

func TestViewport_ToCanvasRoundTrip(t *testing.T) {
	vp := NewViewport(1000, 600)
	sx, sy := vp.ToScreen(540, 540)
	// Canvas centre maps to container centre.
	assert.InDelta(t, 500, sx, delta)
	assert.InDelta(t, 300, sy, delta)

	cx, cy := vp.ToCanvas(sx, sy)
	assert.InDelta(t, 540, cx, delta)
	assert.InDelta(t, 540, cy, delta)
}

func overlapSlide() core.Slide {
	return core.Slide{ID: "s", BackgroundColor: "#ffffff", Elements: []core.Element{
		&core.ShapeElement{ID: "bottom", X: 0, Y: 0, Width: 500, Height: 500, ShapeType: core.ShapeRect, Fill: "#111111"},
		&core.ShapeElement{ID: "top", X: 100, Y: 100, Width: 200, Height: 200, ShapeType: core.ShapeRect, Fill: "#222222"},
		&core.TextElement{ID: "caption", X: 600, Y: 600, Width: 300, Height: 100, Text: "Hi", FontSize: 40, Fill: "#000000"},
	}}
}

func TestHitTest_TopmostFirst(t *testing.T) {
	slide := overlapSlide()

	id, ok := HitTest(slide, 150, 150)
	require.True(t, ok)
	assert.Equal(t, "top", id)

	id, ok = HitTest(slide, 50, 50)
	require.True(t, ok)
	assert.Equal(t, "bottom", id)

	_, ok = HitTest(slide, 1000, 10)
	assert.False(t, ok)
}

func TestHitTest_Rotation(t *testing.T) {
	slide := core.Slide{ID: "s", Elements: []core.Element{
		&core.ShapeElement{ID: "bar", X: 0, Y: 0, Width: 100, Height: 20, ShapeType: core.ShapeRect, Rotation: 90},
	}}

	// Rotated about (50, 10): the bar now spans y in [-40, 60] and x in [40, 60].
	_, ok := HitTest(slide, 50, 50)
	assert.True(t, ok)
	_, ok = HitTest(slide, 90, 10)
	assert.False(t, ok)
}

func TestContains_Geometry(t *testing.T) {
	circle := &core.ShapeElement{ID: "c", Width: 100, Height: 100, ShapeType: core.ShapeCircle}
	assert.True(t, Contains(circle, 50, 50))
	assert.False(t, Contains(circle, 5, 5))

	ellipse := &core.ShapeElement{ID: "e", Width: 200, Height: 100, ShapeType: core.ShapeEllipse}
	assert.True(t, Contains(ellipse, 190, 50))
	assert.False(t, Contains(ellipse, 190, 10))

	tri := &core.ShapeElement{ID: "t", Width: 100, Height: 100, ShapeType: core.ShapeTriangle}
	assert.True(t, Contains(tri, 50, 10))
	assert.False(t, Contains(tri, 5, 10))
	assert.True(t, Contains(tri, 5, 99))

	line := &core.ShapeElement{ID: "l", Width: 100, Height: 0, ShapeType: core.ShapeLine}
	assert.True(t, Contains(line, 50, 4))
	assert.False(t, Contains(line, 50, 20))
}

func TestGridLines(t *testing.T) {
	lines := GridLines(0)
	require.Len(t, lines, 26)
	assert.Equal(t, 40.0, lines[0])
	assert.Equal(t, 1040.0, lines[len(lines)-1])
	for i := 1; i < len(lines); i++ {
		assert.Equal(t, GridSpacing, lines[i]-lines[i-1])
	}
}

// newTestStage returns a stage at scale 0.5 with no offset, so canvas
// coordinates are twice the screen coordinates.
func newTestStage(slide core.Slide) *Stage {
	s := New(NewViewport(540, 540))
	s.SetSlide(slide)
	return s
}

func down(s *Stage, cx, cy float64) []Message { return s.PointerDown(cx/2, cy/2) }
func move(s *Stage, cx, cy float64) []Message { return s.PointerMove(cx/2, cy/2) }
func up(s *Stage, cx, cy float64) []Message   { return s.PointerUp(cx/2, cy/2) }

func onlyUpdate(t *testing.T, msgs []Message) ElementUpdateRequested {
	t.Helper()
	require.Len(t, msgs, 1)
	upd, ok := msgs[0].(ElementUpdateRequested)
	require.True(t, ok, "expected ElementUpdateRequested, got %T", msgs[0])
	return upd
}

func TestStage_ClickSelectsAndBackgroundClears(t *testing.T) {
	s := newTestStage(overlapSlide())

	msgs := down(s, 150, 150)
	assert.Equal(t, []Message{SelectionChanged{ElementID: "top"}}, msgs)
	assert.Empty(t, up(s, 150, 150))
	assert.Equal(t, "top", s.Selected())

	// Clicking the selected element again reports nothing.
	assert.Empty(t, down(s, 160, 160))
	up(s, 160, 160)

	msgs = down(s, 1000, 50)
	assert.Equal(t, []Message{SelectionChanged{}}, msgs)
	assert.Equal(t, "", s.Selected())

	// Clicking the background with nothing selected is silent.
	assert.Empty(t, down(s, 1000, 50))
}

func TestStage_DragEmitsMoveWithoutMutating(t *testing.T) {
	slide := overlapSlide()
	s := newTestStage(slide)

	down(s, 150, 150)
	upd := onlyUpdate(t, move(s, 190, 130))
	assert.Equal(t, "top", upd.ElementID)
	assert.Equal(t, core.MoveTo(140, 80), upd.Updates)

	// Same position again is deduplicated; release at the last point adds nothing.
	assert.Empty(t, move(s, 190, 130))
	assert.Empty(t, up(s, 190, 130))
	assert.Equal(t, HandleNone, s.Active())

	b := slide.Elements[1].Bounds()
	assert.Equal(t, 100.0, b.X)
	assert.Equal(t, 100.0, b.Y)
}

func TestStage_ResizeSouthEast(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SetSelected("top")

	assert.Empty(t, down(s, 300, 300))
	assert.Equal(t, HandleSE, s.Active())

	upd := onlyUpdate(t, up(s, 350, 360))
	assert.InDelta(t, 100, *upd.Updates.X, delta)
	assert.InDelta(t, 100, *upd.Updates.Y, delta)
	assert.InDelta(t, 250, *upd.Updates.Width, delta)
	assert.InDelta(t, 260, *upd.Updates.Height, delta)
}

func TestStage_ResizeClampsToMinimum(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SetSelected("top")

	down(s, 300, 200) // east handle
	require.Equal(t, HandleE, s.Active())

	upd := onlyUpdate(t, move(s, 0, 200))
	assert.InDelta(t, 100, *upd.Updates.X, delta)
	assert.InDelta(t, MinElementSize, *upd.Updates.Width, delta)
	assert.InDelta(t, 200, *upd.Updates.Height, delta)
}

func TestStage_ResizeWestKeepsEastEdge(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SetSelected("top")

	down(s, 100, 200)
	require.Equal(t, HandleW, s.Active())

	upd := onlyUpdate(t, move(s, 40, 200))
	assert.InDelta(t, 40, *upd.Updates.X, delta)
	assert.InDelta(t, 260, *upd.Updates.Width, delta)
	assert.InDelta(t, 300, *upd.Updates.X+*upd.Updates.Width, delta)
}

func TestStage_ResizeRotatedKeepsOppositeEdge(t *testing.T) {
	slide := core.Slide{ID: "s", Elements: []core.Element{
		&core.ShapeElement{ID: "r", X: 100, Y: 100, Width: 200, Height: 100, ShapeType: core.ShapeRect, Rotation: 90},
	}}
	s := newTestStage(slide)
	s.SetSelected("r")

	// The east handle of a box rotated 90 degrees sits below the centre.
	ex, ey := HandlePosition(slide.Elements[0], HandleE, 0.5)
	assert.InDelta(t, 200, ex, delta)
	assert.InDelta(t, 250, ey, delta)

	down(s, ex, ey)
	require.Equal(t, HandleE, s.Active())
	upd := onlyUpdate(t, move(s, 200, 300))

	assert.InDelta(t, 250, *upd.Updates.Width, 1e-6)
	assert.InDelta(t, 100, *upd.Updates.Height, 1e-6)
	assert.InDelta(t, 75, *upd.Updates.X, 1e-6)
	assert.InDelta(t, 125, *upd.Updates.Y, 1e-6)
}

func TestStage_ResizeImageKeepsAspect(t *testing.T) {
	slide := core.Slide{ID: "s", Elements: []core.Element{
		&core.ImageElement{ID: "img", X: 100, Y: 100, Width: 200, Height: 100, Src: "a.png"},
	}}
	s := newTestStage(slide)
	s.SetSelected("img")

	down(s, 300, 200)
	require.Equal(t, HandleSE, s.Active())
	upd := onlyUpdate(t, move(s, 400, 210))

	assert.InDelta(t, 300, *upd.Updates.Width, delta)
	assert.InDelta(t, 150, *upd.Updates.Height, delta)
	assert.InDelta(t, 100, *upd.Updates.X, delta)
	assert.InDelta(t, 100, *upd.Updates.Y, delta)
}

func TestStage_Rotate(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SetSelected("top")

	// The rotate handle sits 40 screen pixels (80 canvas units) above the top edge.
	hx, hy := HandlePosition(overlapSlide().Elements[1], HandleRotate, 0.5)
	assert.InDelta(t, 200, hx, delta)
	assert.InDelta(t, 20, hy, delta)

	down(s, hx, hy)
	require.Equal(t, HandleRotate, s.Active())

	upd := onlyUpdate(t, move(s, 400, 200))
	assert.InDelta(t, 90, *upd.Updates.Rotation, delta)

	upd = onlyUpdate(t, move(s, 300, 95))
	assert.InDelta(t, 45, *upd.Updates.Rotation, delta)

	// Pointing up and slightly left snaps back to 0, never 360.
	upd = onlyUpdate(t, up(s, 198, 0))
	assert.InDelta(t, 0, *upd.Updates.Rotation, delta)
}

func TestStage_RotateWithoutSnap(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SnapRotation = false
	s.SetSelected("top")

	down(s, 200, 20)
	upd := onlyUpdate(t, move(s, 100, 200))
	assert.InDelta(t, 270, *upd.Updates.Rotation, delta)
}

func TestStage_CancelRestoresGeometry(t *testing.T) {
	s := newTestStage(overlapSlide())

	down(s, 150, 150)
	move(s, 250, 250)
	msgs := s.Cancel()

	upd := onlyUpdate(t, msgs)
	assert.Equal(t, 100.0, *upd.Updates.X)
	assert.Equal(t, 200.0, *upd.Updates.Width)
	assert.Equal(t, 0.0, *upd.Updates.Rotation)
	assert.Equal(t, HandleNone, s.Active())
	assert.Empty(t, s.Cancel())
}

func TestStage_Nudge(t *testing.T) {
	s := newTestStage(overlapSlide())
	assert.Empty(t, s.Nudge(1, 0))

	s.SetSelected("caption")
	upd := onlyUpdate(t, s.Nudge(-10, 5))
	assert.Equal(t, "caption", upd.ElementID)
	assert.Equal(t, core.MoveTo(590, 605), upd.Updates)
}

func TestStage_SetSlideDropsStaleSelection(t *testing.T) {
	s := newTestStage(overlapSlide())
	s.SetSelected("top")

	slide := overlapSlide()
	slide.Elements = slide.Elements[:1]
	s.SetSlide(slide)
	assert.Equal(t, "", s.Selected())

	s.SetSelected("missing")
	assert.Equal(t, "", s.Selected())
}

func TestRenderSVG(t *testing.T) {
	slide := core.Slide{ID: "s", BackgroundColor: "#0f172a", Elements: []core.Element{
		&core.TextElement{ID: "t", X: 90, Y: 90, Width: 900, Height: 200, Text: "Tips & tricks", FontSize: 60, Fill: "#ffffff", Align: "center"},
		&core.ShapeElement{ID: "c", X: 100, Y: 500, Width: 200, Height: 200, ShapeType: core.ShapeCircle, Fill: "#38bdf8", Rotation: 30},
		&core.ImageElement{ID: "i", X: 500, Y: 500, Width: 300, Height: 200, Src: "https://example.com/a.png"},
	}}

	var buf bytes.Buffer
	RenderSVG(&buf, slide, RenderOptions{Scale: 0.5})
	out := buf.String()

	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, `viewBox="0 0 1080 1080"`)
	assert.Contains(t, out, "fill:#0f172a")
	assert.Contains(t, out, "Tips &amp; tricks")
	assert.Contains(t, out, "text-anchor:middle")
	assert.Contains(t, out, "rotate(30.00 200.00 600.00)")
	assert.Contains(t, out, "https://example.com/a.png")
	assert.NotContains(t, out, "<line")

	// Element order is z-order.
	assert.Less(t, strings.Index(out, "Tips"), strings.Index(out, "<circle"))
	assert.Less(t, strings.Index(out, "<circle"), strings.Index(out, "<image"))
}

func TestRenderSVG_EscapesAttributes(t *testing.T) {
	slide := core.Slide{ID: "s", Elements: []core.Element{
		&core.TextElement{ID: "t", X: 90, Y: 90, Width: 900, Height: 200, Text: "Hi", FontSize: 60,
			Fill: `red" onload="alert(1)`, FontWeight: `bold;}</style><script>`},
		&core.ShapeElement{ID: "r", X: 0, Y: 0, Width: 10, Height: 10, ShapeType: core.ShapeRect,
			Fill: `#fff" onclick="x`, Stroke: "rgb(1, 2, 3)", StrokeWidth: 2},
		&core.ImageElement{ID: "i", X: 500, Y: 500, Width: 300, Height: 200, Src: `https://example.com/a.png" onerror="alert(1)`},
	}}

	var buf bytes.Buffer
	RenderSVG(&buf, slide, RenderOptions{})
	out := buf.String()

	assert.NotContains(t, out, `" onload=`)
	assert.NotContains(t, out, `" onclick=`)
	assert.NotContains(t, out, `" onerror=`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "font-weight:normal")
	assert.Contains(t, out, "stroke:rgb(1, 2, 3)")
	assert.Contains(t, out, "a.png&#34; onerror=&#34;alert(1)")
}

func TestCSSValue(t *testing.T) {
	assert.Equal(t, "#38bdf8", cssValue("#38bdf8", "none"))
	assert.Equal(t, "rgba(0, 0, 0, 0.5)", cssValue("rgba(0, 0, 0, 0.5)", "none"))
	assert.Equal(t, "600", cssValue("600", "normal"))
	assert.Equal(t, "none", cssValue("", "none"))
	assert.Equal(t, "none", cssValue("red;background:url(x)", "none"))
	assert.Equal(t, "none", cssValue(`"`, "none"))
}

func TestRenderSVG_GridAndSelection(t *testing.T) {
	slide := core.Slide{ID: "s", Elements: []core.Element{
		&core.TextElement{ID: "t", X: 90, Y: 90, Width: 900, Height: 200, Text: "Hello", FontSize: 60, Fill: "#000000"},
	}}

	var buf bytes.Buffer
	RenderSVG(&buf, slide, RenderOptions{ShowGrid: true})
	assert.Equal(t, 2*len(GridLines(0)), strings.Count(buf.String(), "<line"))

	buf.Reset()
	RenderSVG(&buf, slide, RenderOptions{SelectedID: "t"})
	out := buf.String()
	assert.Contains(t, out, "stroke-dasharray")
	// One connector line to the rotate handle, eight resize handles.
	assert.Equal(t, 1, strings.Count(out, "<line"))
	assert.Equal(t, 1+8+1, strings.Count(out, "<rect"))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, WrapText("one two three", 8))
	assert.Equal(t, []string{"a", "", "b"}, WrapText("a\n\nb", 10))
	assert.Equal(t, []string{"supercalifragilistic"}, WrapText("supercalifragilistic", 5))
}
