package core

import (
	"errors"
	"fmt"
)

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrGenerationFailed  = errors.New("content generation failed")
	ErrExportFailed      = errors.New("export failed")
	ErrCapacityExceeded  = errors.New("slide capacity exceeded")
	ErrInvalidSlideIndex = errors.New("invalid slide index")
	ErrLastSlide         = errors.New("cannot delete the last remaining slide")
	ErrNoSlots           = errors.New("template has no content slots to fill")
	ErrElementNotFound   = errors.New("element not found")
	ErrUnknownElement    = errors.New("unknown element type")
	ErrBusy              = errors.New("another generation or export is in progress")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCarouselNotFound  = errors.New("carousel not found")
)

// GenerationError carries the upstream message of a failed content generation.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return ErrGenerationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrGenerationFailed, e.Message)
}

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func (e *GenerationError) Unwrap() error { return e.Err }

// ExportError identifies the slide whose rasterization aborted an export.
type ExportError struct {
	SlideIndex int
	Err        error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s: slide %d: %v", ErrExportFailed, e.SlideIndex+1, e.Err)
}

func (e *ExportError) Is(target error) bool { return target == ErrExportFailed }

func (e *ExportError) Unwrap() error { return e.Err }

// IndexError reports an out-of-range slide index.
func IndexError(op string, index, length int) error {
	return fmt.Errorf("%s: %w: %d not in [0,%d)", op, ErrInvalidSlideIndex, index, length)
}
