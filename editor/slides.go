package editor

import (
	"fmt"

	"carousel-studio/core"
)

func (s *Session) checkIndex(op string, i int) error {
	if i < 0 || i >= len(s.slides) {
		return core.IndexError(op, i, len(s.slides))
	}
	return nil
}

// CanAddSlide reports whether another slide fits under core.MaxSlides.
func (s *Session) CanAddSlide() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slides) < core.MaxSlides
}

// AddSlide appends a blank slide and makes it current. At capacity the
// document is left unchanged and core.ErrCapacityExceeded is returned.
func (s *Session) AddSlide() error {
	return s.mutate(func() error {
		if len(s.slides) >= core.MaxSlides {
			return fmt.Errorf("add slide: %w: at most %d slides", core.ErrCapacityExceeded, core.MaxSlides)
		}
		s.slides = append(s.slides, core.NewSlide())
		s.current = len(s.slides) - 1
		s.selected = ""
		return nil
	})
}

// DeleteSlide removes slide i. The last remaining slide cannot be deleted.
// The current index stays on the same slide when an earlier one is removed,
// and moves to the nearest remaining slide when the current one is.
func (s *Session) DeleteSlide(i int) error {
	return s.mutate(func() error {
		if err := s.checkIndex("delete slide", i); err != nil {
			return err
		}
		if len(s.slides) <= 1 {
			return fmt.Errorf("delete slide: %w", core.ErrLastSlide)
		}

		s.slides = append(s.slides[:i], s.slides[i+1:]...)
		switch {
		case i < s.current:
			s.current--
		case i == s.current:
			s.selected = ""
			if s.current >= len(s.slides) {
				s.current = len(s.slides) - 1
			}
		}
		return nil
	})
}

// DuplicateSlide inserts a deep copy of slide i, with fresh ids, right after
// it and makes the copy current.
func (s *Session) DuplicateSlide(i int) error {
	return s.mutate(func() error {
		if err := s.checkIndex("duplicate slide", i); err != nil {
			return err
		}
		if len(s.slides) >= core.MaxSlides {
			return fmt.Errorf("duplicate slide: %w: at most %d slides", core.ErrCapacityExceeded, core.MaxSlides)
		}

		dup := s.slides[i].Clone(true)
		s.slides = append(s.slides, core.Slide{})
		copy(s.slides[i+2:], s.slides[i+1:])
		s.slides[i+1] = dup
		s.current = i + 1
		s.selected = ""
		return nil
	})
}

// ReorderSlides moves the slide at from to position to, shifting the slides
// in between. The current slide keeps its identity across the move.
func (s *Session) ReorderSlides(from, to int) error {
	return s.mutate(func() error {
		if err := s.checkIndex("reorder slides", from); err != nil {
			return err
		}
		if err := s.checkIndex("reorder slides", to); err != nil {
			return err
		}
		if from == to {
			return nil
		}

		moved := s.slides[from]
		if from < to {
			copy(s.slides[from:to], s.slides[from+1:to+1])
		} else {
			copy(s.slides[to+1:from+1], s.slides[to:from])
		}
		s.slides[to] = moved

		switch {
		case s.current == from:
			s.current = to
		case from < s.current && s.current <= to:
			s.current--
		case to <= s.current && s.current < from:
			s.current++
		}
		return nil
	})
}

// SelectSlide makes slide i current and clears the element selection.
func (s *Session) SelectSlide(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex("select slide", i); err != nil {
		return err
	}
	if s.current != i {
		s.current = i
		s.selected = ""
	}
	return nil
}

// SetBackground sets the background colour of the current slide.
func (s *Session) SetBackground(color string) error {
	return s.mutate(func() error {
		s.slides[s.current].BackgroundColor = color
		return nil
	})
}
