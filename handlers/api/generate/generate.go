package generate

import (
	"errors"
	"net/http"
	"strings"

	"carousel-studio/aifill"
	"carousel-studio/core"
	"carousel-studio/editor"
	"carousel-studio/handlers/api"
	"carousel-studio/middleware"
	"carousel-studio/templates"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type request struct {
	TemplateID string        `json:"templateId"`
	Inputs     aifill.Inputs `json:"inputs"`
	// Outline is an optional markdown brief. Explicit inputs take precedence
	// over what is parsed from it.
	Outline string `json:"outline,omitempty"`
	// CarouselID, when set, writes the generated slides into that saved
	// carousel.
	CarouselID string `json:"carouselId,omitempty"`
}

type response struct {
	*aifill.BuildResult
	Summary    string `json:"summary"`
	CarouselID string `json:"carouselId,omitempty"`
}

// Handler serves POST /generate.
type Handler struct {
	Registry  *templates.Registry
	Filler    editor.Filler
	Carousels core.CarouselStore
	Log       logrus.FieldLogger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Filler == nil {
		api.Error(w, r, http.StatusServiceUnavailable, "Content generation is not configured")
		return
	}
	log := h.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var req request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, "Invalid generate body: "+err.Error())
		return
	}
	defer r.Body.Close()

	userID := middleware.UserID(r.Context())
	tpl, err := h.Registry.Get(r.Context(), userID, req.TemplateID)
	if err != nil {
		api.Error(w, r, api.StatusFor(err), err.Error())
		return
	}
	in := mergeInputs(req.Inputs, req.Outline)

	log = log.WithFields(logrus.Fields{
		"template_id": tpl.ID,
		"user_id":     userID,
	})

	var res *aifill.BuildResult
	if req.CarouselID != "" {
		res, err = h.fillCarousel(r, userID, req.CarouselID, tpl, in)
	} else {
		res, err = h.Filler.Fill(r.Context(), tpl, in)
	}
	if err != nil {
		status := api.StatusFor(err)
		log.WithError(err).WithField("status", status).Warn("Generation failed")
		msg := err.Error()
		if errors.Is(err, core.ErrNoSlots) {
			msg = "This template has no text areas to fill"
		}
		api.Error(w, r, status, msg)
		return
	}

	log.WithFields(logrus.Fields{
		"filled":   res.FilledSlots,
		"total":    res.TotalSlots,
		"warnings": len(res.Warnings),
	}).Info("Generated carousel content")
	render.JSON(w, r, response{BuildResult: res, Summary: res.Summary(), CarouselID: req.CarouselID})
}

// fillCarousel runs the generation against a saved carousel and persists the
// result. The saved carousel is untouched when generation fails.
func (h *Handler) fillCarousel(r *http.Request, userID, id string, tpl *core.CanvasTemplate, in aifill.Inputs) (*aifill.BuildResult, error) {
	if h.Carousels == nil || userID == "" {
		return nil, core.ErrCarouselNotFound
	}
	saved, err := h.Carousels.Get(r.Context(), userID, id)
	if err != nil {
		return nil, err
	}
	session, err := editor.New(saved.Slides, h.Log)
	if err != nil {
		return nil, err
	}

	res, err := session.Generate(r.Context(), h.Filler, tpl, in)
	if err != nil {
		return nil, err
	}
	next := session.Carousel(saved.ID, saved.Name)
	next.UserID = userID
	next.Thumbnail = saved.Thumbnail
	if err := h.Carousels.Save(r.Context(), next); err != nil {
		return nil, err
	}
	return res, nil
}

// mergeInputs fills blank fields of in from a markdown outline.
func mergeInputs(in aifill.Inputs, outline string) aifill.Inputs {
	if strings.TrimSpace(outline) == "" {
		return in
	}
	parsed := aifill.ParseOutline(outline)
	pick := func(a, b string) string {
		if strings.TrimSpace(a) != "" {
			return a
		}
		return b
	}
	in.Topic = pick(in.Topic, parsed.Topic)
	in.Audience = pick(in.Audience, parsed.Audience)
	in.Industry = pick(in.Industry, parsed.Industry)
	in.Tone = pick(in.Tone, parsed.Tone)
	in.CTAType = pick(in.CTAType, parsed.CTAType)
	in.CustomCTA = pick(in.CustomCTA, parsed.CustomCTA)
	in.AdditionalContext = pick(in.AdditionalContext, parsed.AdditionalContext)
	if len(in.KeyPoints) == 0 {
		in.KeyPoints = parsed.KeyPoints
	}
	return in
}
