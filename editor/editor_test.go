package editor

import (
	"context"
	"errors"
	"testing"

	"carousel-studio/aifill"
	"carousel-studio/core"
	"carousel-studio/export"
	"carousel-studio/stage"
	"carousel-studio/templates"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func newSession(t *testing.T, slides ...core.Slide) *Session {
	t.Helper()
	s, err := New(slides, quietLogger())
	require.NoError(t, err)
	return s
}

func slideIDs(s *Session) []string {
	var ids []string
	for _, sl := range s.Slides() {
		ids = append(ids, sl.ID)
	}
	return ids
}

func named(ids ...string) []core.Slide {
	out := make([]core.Slide, len(ids))
	for i, id := range ids {
		out[i] = core.Slide{ID: id, BackgroundColor: core.DefaultBackground, Elements: []core.Element{}}
	}
	return out
}

func boxSlide() core.Slide {
	return core.Slide{
		ID:              "s1",
		BackgroundColor: core.DefaultBackground,
		Elements: []core.Element{
			&core.ShapeElement{ID: "a", X: 100, Y: 100, Width: 200, Height: 200, ShapeType: core.ShapeRect, Fill: "#000"},
			&core.ShapeElement{ID: "b", X: 500, Y: 500, Width: 200, Height: 200, ShapeType: core.ShapeRect, Fill: "#111"},
			&core.TextElement{ID: "c", X: 100, Y: 800, Width: 400, Height: 100, Text: "hi", FontSize: 32, Fill: "#222"},
		},
	}
}

func TestNew_EmptyStartsWithOneSlide(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Empty(t, s.Selected())
}

func TestNew_RejectsInvalidDocuments(t *testing.T) {
	_, err := New(named("1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"), quietLogger())
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)

	dup := boxSlide()
	dup.Elements = append(dup.Elements, dup.Elements[0].Clone())
	_, err = New([]core.Slide{dup}, quietLogger())
	assert.Error(t, err)
}

func TestAddSlide_StopsAtCapacity(t *testing.T) {
	s := newSession(t)
	var failures int
	for i := 0; i < 11; i++ {
		if err := s.AddSlide(); err != nil {
			assert.ErrorIs(t, err, core.ErrCapacityExceeded)
			failures++
		}
	}
	assert.Equal(t, core.MaxSlides, s.Len())
	assert.Equal(t, 2, failures)
	assert.False(t, s.CanAddSlide())
	assert.Equal(t, core.MaxSlides-1, s.CurrentIndex())
}

func TestDeleteSlide_LastIsRejected(t *testing.T) {
	s := newSession(t, named("only")...)
	err := s.DeleteSlide(0)
	assert.ErrorIs(t, err, core.ErrLastSlide)
	assert.Equal(t, []string{"only"}, slideIDs(s))
}

func TestDeleteSlide_CurrentIndex(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		del         int
		wantIDs     []string
		wantCurrent int
	}{
		{"before current", 2, 0, []string{"B", "C", "D"}, 1},
		{"after current", 1, 3, []string{"A", "B", "C"}, 1},
		{"current in middle", 1, 1, []string{"A", "C", "D"}, 1},
		{"current at end", 3, 3, []string{"A", "B", "C"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, named("A", "B", "C", "D")...)
			require.NoError(t, s.SelectSlide(tt.current))
			require.NoError(t, s.DeleteSlide(tt.del))
			assert.Equal(t, tt.wantIDs, slideIDs(s))
			assert.Equal(t, tt.wantCurrent, s.CurrentIndex())
		})
	}
}

func TestDeleteSlide_BadIndex(t *testing.T) {
	s := newSession(t, named("A", "B")...)
	assert.ErrorIs(t, s.DeleteSlide(2), core.ErrInvalidSlideIndex)
	assert.ErrorIs(t, s.DeleteSlide(-1), core.ErrInvalidSlideIndex)
}

func TestDuplicateSlide_ThenDeleteRoundTrips(t *testing.T) {
	s := newSession(t, boxSlide(), named("next")[0])
	before := s.Slides()

	require.NoError(t, s.DuplicateSlide(0))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.CurrentIndex())

	got := s.Slides()
	dup := got[1]
	assert.NotEqual(t, before[0].ID, dup.ID)
	require.Len(t, dup.Elements, len(before[0].Elements))
	for i, el := range dup.Elements {
		orig := before[0].Elements[i]
		assert.NotEqual(t, orig.ElementID(), el.ElementID())
		assert.Equal(t, orig.Bounds(), el.Bounds())
		assert.Equal(t, orig.Kind(), el.Kind())
	}

	require.NoError(t, s.DeleteSlide(1))
	assert.Equal(t, before, s.Slides())
}

func TestDuplicateSlide_Capacity(t *testing.T) {
	s := newSession(t, named("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")...)
	assert.ErrorIs(t, s.DuplicateSlide(0), core.ErrCapacityExceeded)
	assert.Equal(t, core.MaxSlides, s.Len())
}

func TestDuplicateSlide_IsIndependent(t *testing.T) {
	s := newSession(t, boxSlide())
	require.NoError(t, s.DuplicateSlide(0))
	dupID := s.Slides()[1].Elements[0].ElementID()

	require.NoError(t, s.UpdateElement(dupID, core.MoveTo(0, 0)))
	assert.Equal(t, 100.0, s.Slides()[0].Elements[0].Bounds().X)
	assert.Equal(t, 0.0, s.Slides()[1].Elements[0].Bounds().X)
}

func TestReorderSlides(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"B", "C", "A"}},
		{2, 0, []string{"C", "A", "B"}},
		{1, 1, []string{"A", "B", "C"}},
		{0, 1, []string{"B", "A", "C"}},
	}
	for _, tt := range tests {
		s := newSession(t, named("A", "B", "C")...)
		require.NoError(t, s.ReorderSlides(tt.from, tt.to))
		assert.Equal(t, tt.want, slideIDs(s), "reorder(%d,%d)", tt.from, tt.to)
	}

	s := newSession(t, named("A", "B", "C")...)
	assert.ErrorIs(t, s.ReorderSlides(0, 3), core.ErrInvalidSlideIndex)
	assert.Equal(t, []string{"A", "B", "C"}, slideIDs(s))
}

func TestReorderSlides_CurrentFollowsSlide(t *testing.T) {
	s := newSession(t, named("A", "B", "C", "D")...)
	require.NoError(t, s.SelectSlide(1))
	require.NoError(t, s.ReorderSlides(1, 3))
	assert.Equal(t, "B", s.CurrentSlide().ID)

	require.NoError(t, s.ReorderSlides(0, 2))
	assert.Equal(t, "B", s.CurrentSlide().ID)

	require.NoError(t, s.ReorderSlides(3, 0))
	assert.Equal(t, "B", s.CurrentSlide().ID)
}

func TestSelectSlide_ClearsSelection(t *testing.T) {
	s := newSession(t, boxSlide(), named("next")[0])
	require.NoError(t, s.SelectElement("a"))
	require.NoError(t, s.SelectSlide(1))
	assert.Empty(t, s.Selected())
	assert.ErrorIs(t, s.SelectSlide(5), core.ErrInvalidSlideIndex)
}

func TestElements_SelectUpdateDelete(t *testing.T) {
	s := newSession(t, boxSlide())

	assert.ErrorIs(t, s.SelectElement("nope"), core.ErrElementNotFound)
	require.NoError(t, s.SelectElement("b"))
	assert.Equal(t, "b", s.Selected())

	require.NoError(t, s.UpdateElement("b", core.ElementUpdate{Width: core.Float(300), Rotation: core.Float(45)}))
	el, ok := s.CurrentSlide().Element("b")
	require.True(t, ok)
	assert.Equal(t, 300.0, el.Bounds().Width)
	assert.Equal(t, 45.0, el.Angle())

	require.NoError(t, s.UpdateElement("c", core.ElementUpdate{Text: core.String("changed")}))
	el, _ = s.CurrentSlide().Element("c")
	assert.Equal(t, "changed", el.(*core.TextElement).Text)

	assert.ErrorIs(t, s.UpdateElement("nope", core.MoveTo(1, 1)), core.ErrElementNotFound)

	require.NoError(t, s.DeleteElement("b"))
	assert.Empty(t, s.Selected())
	_, ok = s.CurrentSlide().Element("b")
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteElement("b"), core.ErrElementNotFound)
}

func TestElements_ZOrder(t *testing.T) {
	s := newSession(t, boxSlide())
	order := func() []string {
		var ids []string
		for _, el := range s.CurrentSlide().Elements {
			ids = append(ids, el.ElementID())
		}
		return ids
	}

	require.NoError(t, s.BringForward("a"))
	assert.Equal(t, []string{"b", "a", "c"}, order())
	require.NoError(t, s.BringForward("c"))
	assert.Equal(t, []string{"b", "a", "c"}, order())
	require.NoError(t, s.SendBackward("c"))
	assert.Equal(t, []string{"b", "c", "a"}, order())
	require.NoError(t, s.SendBackward("b"))
	assert.Equal(t, []string{"b", "c", "a"}, order())
	assert.ErrorIs(t, s.BringForward("x"), core.ErrElementNotFound)
}

func TestInsertElements(t *testing.T) {
	s := newSession(t)
	at := core.Rect{X: 10, Y: 20, Width: 300, Height: 100}

	id, err := s.InsertText("Hello", at)
	require.NoError(t, err)
	assert.Equal(t, id, s.Selected())
	el, ok := s.CurrentSlide().Element(id)
	require.True(t, ok)
	assert.Equal(t, at, el.Bounds())
	assert.True(t, core.IsText(el))

	imgID, err := s.InsertImage("https://cdn.example.com/a.png", at)
	require.NoError(t, err)
	assert.NotEqual(t, id, imgID)

	_, err = s.InsertImage(" ", at)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	shapeID, err := s.InsertShape(core.ShapeCircle, "#f00", "", at)
	require.NoError(t, err)
	el, _ = s.CurrentSlide().Element(shapeID)
	assert.Equal(t, core.ShapeCircle, el.(*core.ShapeElement).ShapeType)

	_, err = s.InsertShape(core.ShapeSVG, "", "not markup", at)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = s.InsertShape("hexagon", "", "", at)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = s.InsertText("x", core.Rect{Width: 0, Height: 10})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Len(t, s.CurrentSlide().Elements, 3)
	assert.NoError(t, core.ValidateSlides(s.Slides()))
}

func TestSetBackground(t *testing.T) {
	s := newSession(t, named("A", "B")...)
	require.NoError(t, s.SelectSlide(1))
	require.NoError(t, s.SetBackground("#0f172a"))
	slides := s.Slides()
	assert.Equal(t, core.DefaultBackground, slides[0].BackgroundColor)
	assert.Equal(t, "#0f172a", slides[1].BackgroundColor)
}

func TestBusy_RejectsMutations(t *testing.T) {
	s := newSession(t, boxSlide(), named("next")[0])
	require.NoError(t, s.Begin("export"))
	assert.Equal(t, "export", s.Busy())
	assert.ErrorIs(t, s.Begin("generate"), core.ErrBusy)

	before := s.Slides()
	for name, err := range map[string]error{
		"add":       s.AddSlide(),
		"delete":    s.DeleteSlide(1),
		"duplicate": s.DuplicateSlide(0),
		"reorder":   s.ReorderSlides(0, 1),
		"update":    s.UpdateElement("a", core.MoveTo(0, 0)),
		"delete el": s.DeleteElement("a"),
		"forward":   s.BringForward("a"),
		"bg":        s.SetBackground("#000"),
		"template":  s.ApplyTemplate(templates.MustBuiltIn(templates.MinimalTitleID)),
	} {
		assert.ErrorIs(t, err, core.ErrBusy, name)
	}
	_, err := s.InsertText("x", core.Rect{Width: 10, Height: 10})
	assert.ErrorIs(t, err, core.ErrBusy)
	assert.Equal(t, before, s.Slides())

	// Navigation stays available.
	assert.NoError(t, s.SelectElement("a"))
	assert.NoError(t, s.SelectSlide(1))

	s.End()
	assert.Empty(t, s.Busy())
	assert.NoError(t, s.AddSlide())
}

func TestApplyTemplate(t *testing.T) {
	s := newSession(t, named("A", "B")...)
	require.NoError(t, s.SelectSlide(1))
	tpl := templates.MustBuiltIn(templates.CarouselOutlineID)

	require.NoError(t, s.ApplyTemplate(tpl))
	assert.Equal(t, tpl.ID, s.TemplateID())
	assert.Equal(t, len(tpl.DefaultSlides), s.Len())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.NotEqual(t, tpl.DefaultSlides[0].ID, s.Slides()[0].ID)

	fresh, err := FromTemplate(tpl, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, fresh.TemplateID())
	assert.Equal(t, len(tpl.DefaultSlides), fresh.Len())
}

func TestDispatch_StageGestures(t *testing.T) {
	s := newSession(t, boxSlide())
	st := stage.New(stage.NewViewport(540, 540))
	s.Sync(st)

	// Canvas (200,200) is screen (100,100) at scale 0.5.
	msgs := st.PointerDown(100, 100)
	msgs = append(msgs, st.PointerMove(150, 150)...)
	msgs = append(msgs, st.PointerUp(150, 150)...)
	require.NoError(t, s.Dispatch(st, msgs))

	assert.Equal(t, "a", s.Selected())
	el, _ := s.CurrentSlide().Element("a")
	assert.Equal(t, core.Rect{X: 200, Y: 200, Width: 200, Height: 200}, el.Bounds())
	assert.Equal(t, "a", st.Selected())
	synced, _ := st.Slide().Element("a")
	assert.Equal(t, el.Bounds(), synced.Bounds())

	// Clicking empty canvas clears the selection.
	require.NoError(t, s.Dispatch(st, st.PointerDown(530, 20)))
	assert.Empty(t, s.Selected())
	assert.Empty(t, st.Selected())
}

func TestDispatch_BusyResyncsStage(t *testing.T) {
	s := newSession(t, boxSlide())
	st := stage.New(stage.NewViewport(540, 540))
	s.Sync(st)
	require.NoError(t, s.Begin("generate"))
	defer s.End()

	err := s.Dispatch(st, []stage.Message{stage.ElementUpdateRequested{ElementID: "a", Updates: core.MoveTo(0, 0)}})
	assert.ErrorIs(t, err, core.ErrBusy)
	synced, _ := st.Slide().Element("a")
	assert.Equal(t, 100.0, synced.Bounds().X)
}

func TestHandle_UnknownMessage(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.Handle(nil), core.ErrInvalidInput)
}

func TestSnapshotAndCarousel(t *testing.T) {
	s := newSession(t, boxSlide())
	data, err := s.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"shape"`)

	c := s.Carousel("c1", "Launch")
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 1, c.SlideCount)
	c.Slides[0].BackgroundColor = "#000"
	assert.Equal(t, core.DefaultBackground, s.Slides()[0].BackgroundColor)
}

type fillerFunc func(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error)

func (f fillerFunc) Fill(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error) {
	return f(ctx, tpl, in)
}

func TestGenerate_ReplacesDocument(t *testing.T) {
	s := newSession(t, named("A", "B")...)
	tpl := templates.MustBuiltIn(templates.QuoteCardID)

	var busyDuring string
	res, err := s.Generate(context.Background(), fillerFunc(func(ctx context.Context, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error) {
		busyDuring = s.Busy()
		return &aifill.BuildResult{Slides: templates.Apply(tpl), FilledSlots: 1, TotalSlots: 1}, nil
	}), tpl, aifill.Inputs{Topic: "x"})
	require.NoError(t, err)

	assert.Equal(t, "generate", busyDuring)
	assert.Empty(t, s.Busy())
	assert.Equal(t, tpl.ID, s.TemplateID())
	assert.Equal(t, len(res.Slides), s.Len())
}

func TestGenerate_FailureLeavesDocument(t *testing.T) {
	s := newSession(t, named("A", "B")...)
	tpl := templates.MustBuiltIn(templates.QuoteCardID)

	_, err := s.Generate(context.Background(), fillerFunc(func(context.Context, *core.CanvasTemplate, aifill.Inputs) (*aifill.BuildResult, error) {
		return nil, &core.GenerationError{Message: "quota"}
	}), tpl, aifill.Inputs{Topic: "x"})
	assert.ErrorIs(t, err, core.ErrGenerationFailed)
	assert.Equal(t, []string{"A", "B"}, slideIDs(s))
	assert.Empty(t, s.Busy())
}

func TestGenerate_CancelledAfterFill(t *testing.T) {
	s := newSession(t, named("A")...)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Generate(ctx, fillerFunc(func(context.Context, *core.CanvasTemplate, aifill.Inputs) (*aifill.BuildResult, error) {
		cancel()
		return &aifill.BuildResult{Slides: named("X")}, nil
	}), templates.MustBuiltIn(templates.QuoteCardID), aifill.Inputs{Topic: "x"})
	assert.ErrorIs(t, err, core.ErrGenerationFailed)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"A"}, slideIDs(s))
}

type runnerFunc func(ctx context.Context, slides []core.Slide, opts export.Options, progress func(float64)) (*export.Artifact, error)

func (f runnerFunc) Export(ctx context.Context, slides []core.Slide, opts export.Options, progress func(float64)) (*export.Artifact, error) {
	return f(ctx, slides, opts, progress)
}

func TestExport_HoldsBusyAndSnapshots(t *testing.T) {
	s := newSession(t, named("A", "B", "C")...)
	var got []core.Slide
	var editErr error
	_, err := s.Export(context.Background(), runnerFunc(func(_ context.Context, slides []core.Slide, _ export.Options, progress func(float64)) (*export.Artifact, error) {
		got = slides
		editErr = s.AddSlide()
		progress(1)
		return &export.Artifact{Format: export.FormatPNG}, nil
	}), export.Options{Format: export.FormatPNG, Quality: export.QualityLow}, func(float64) {})
	require.NoError(t, err)

	assert.ErrorIs(t, editErr, core.ErrBusy)
	assert.Len(t, got, 3)
	assert.Empty(t, s.Busy())
	assert.Equal(t, 3, s.Len())
}

func TestExport_RealExporter(t *testing.T) {
	s := newSession(t, boxSlide())
	exp := export.NewExporter(export.NewCanvasRasterizer(nil), quietLogger())
	art, err := s.Export(context.Background(), exp, export.Options{Format: export.FormatPNG, Quality: export.QualityLow}, nil)
	require.NoError(t, err)
	require.Len(t, art.Files, 1)
	assert.Equal(t, "slide-01.png", art.Files[0].Name)
}
