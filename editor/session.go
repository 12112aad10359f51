// Package editor owns a live carousel document: the ordered slides, the
// current slide and the selected element. Every mutation goes through a
// Session, which applies stage messages, enforces the slide ceiling and
// refuses edits while a generation or export is in flight.
package editor

import (
	"encoding/json"
	"fmt"
	"sync"

	"carousel-studio/core"
	"carousel-studio/stage"
	"carousel-studio/templates"

	"github.com/sirupsen/logrus"
)

// Session is one editing session over one document. It is safe for use from
// multiple goroutines, but the document has a single owner: every method
// completes its mutation before the next begins.
type Session struct {
	mu         sync.Mutex
	slides     []core.Slide
	current    int
	selected   string
	templateID string
	busy       string
	log        logrus.FieldLogger
}

// New starts a session over a copy of slides. An empty input yields a single
// blank slide.
func New(slides []core.Slide, log logrus.FieldLogger) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(slides) == 0 {
		slides = []core.Slide{core.NewSlide()}
	}
	if err := core.ValidateSlides(slides); err != nil {
		return nil, err
	}
	return &Session{slides: core.CloneSlides(slides, false), log: log}, nil
}

// FromTemplate starts a session on a fresh copy of the template's slides.
func FromTemplate(tpl *core.CanvasTemplate, log logrus.FieldLogger) (*Session, error) {
	s, err := New(templates.Apply(tpl), log)
	if err != nil {
		return nil, err
	}
	s.templateID = tpl.ID
	return s, nil
}

// Slides returns a deep copy of the document.
func (s *Session) Slides() []core.Slide {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneSlides(s.slides, false)
}

// Len is the number of slides.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slides)
}

// CurrentIndex is the index of the slide being edited.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentSlide returns a copy of the slide being edited.
func (s *Session) CurrentSlide() core.Slide {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slides[s.current].Clone(false)
}

// Selected returns the selected element id, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// TemplateID is the id of the template last applied, if any.
func (s *Session) TemplateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templateID
}

// Busy names the asynchronous operation in flight, or "".
func (s *Session) Busy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot encodes the document for saving.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.slides)
}

// Carousel fills a saved-document record from the session.
func (s *Session) Carousel(id, name string) *core.Carousel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &core.Carousel{
		ID:         id,
		Name:       name,
		TemplateID: s.templateID,
		Slides:     core.CloneSlides(s.slides, false),
		SlideCount: len(s.slides),
	}
}

// Begin marks op as in flight. While it is outstanding every mutation is
// refused with core.ErrBusy. Callers must pair it with End.
func (s *Session) Begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return fmt.Errorf("%w: %s", core.ErrBusy, s.busy)
	}
	s.busy = op
	return nil
}

// End clears the in-flight marker set by Begin.
func (s *Session) End() {
	s.mu.Lock()
	s.busy = ""
	s.mu.Unlock()
}

// mutate runs fn under the lock unless an operation is in flight.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return fmt.Errorf("%w: %s", core.ErrBusy, s.busy)
	}
	return fn()
}

// ApplyTemplate replaces the whole document with a fresh copy of tpl.
func (s *Session) ApplyTemplate(tpl *core.CanvasTemplate) error {
	slides := templates.Apply(tpl)
	if err := core.ValidateSlides(slides); err != nil {
		return err
	}
	return s.mutate(func() error {
		s.replace(slides)
		s.templateID = tpl.ID
		s.log.WithFields(logrus.Fields{
			"template_id": tpl.ID,
			"slides":      len(slides),
		}).Info("Template applied")
		return nil
	})
}

// replace swaps in a new document and resets the cursor. Caller holds mu.
func (s *Session) replace(slides []core.Slide) {
	s.slides = slides
	s.current = 0
	s.selected = ""
}

// Handle applies a message reported by the stage.
func (s *Session) Handle(msg stage.Message) error {
	switch m := msg.(type) {
	case stage.SelectionChanged:
		return s.SelectElement(m.ElementID)
	case stage.ElementUpdateRequested:
		return s.UpdateElement(m.ElementID, m.Updates)
	default:
		return fmt.Errorf("%w: unhandled stage message %T", core.ErrInvalidInput, msg)
	}
}

// Dispatch applies a batch of stage messages in order and resynchronises the
// stage with the result. It stops at the first failure.
func (s *Session) Dispatch(st *stage.Stage, msgs []stage.Message) error {
	for _, m := range msgs {
		if err := s.Handle(m); err != nil {
			s.Sync(st)
			return err
		}
	}
	s.Sync(st)
	return nil
}

// Sync loads the current slide and selection into st.
func (s *Session) Sync(st *stage.Stage) {
	s.mu.Lock()
	slide := s.slides[s.current].Clone(false)
	selected := s.selected
	s.mu.Unlock()

	st.SetSlide(slide)
	st.SetSelected(selected)
}
