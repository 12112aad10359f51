package templates

import (
	"net/http"

	"carousel-studio/core"
	"carousel-studio/handlers/api"
	"carousel-studio/middleware"
	tpl "carousel-studio/templates"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	DefaultTone string `json:"defaultTone,omitempty"`
	BuiltIn     bool   `json:"builtIn"`
	SlideCount  int    `json:"slideCount"`
	SlotCount   int    `json:"slotCount"`
}

// HandleList returns template summaries, optionally filtered by ?category=.
func HandleList(reg *tpl.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		list, err := reg.List(r.Context(), userID, r.URL.Query().Get("category"))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"user_id": userID,
			}).Error("Failed to list templates")
			api.Error(w, r, http.StatusInternalServerError, "Failed to list templates")
			return
		}

		out := make([]summary, 0, len(list))
		for _, t := range list {
			out = append(out, summary{
				ID:          t.ID,
				Name:        t.Name,
				Category:    t.Category,
				Description: t.Description,
				DefaultTone: t.DefaultTone,
				BuiltIn:     t.BuiltIn,
				SlideCount:  len(t.DefaultSlides),
				SlotCount:   tpl.Analyze(t).TotalSlots,
			})
		}
		render.JSON(w, r, out)
	}
}

// HandleCategories lists the built-in categories.
func HandleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, tpl.Categories())
	}
}

func HandleGet(reg *tpl.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := get(w, r, reg)
		if !ok {
			return
		}
		render.JSON(w, r, t)
	}
}

// HandleAnalysis returns the fillable slots of a template.
func HandleAnalysis(reg *tpl.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := get(w, r, reg)
		if !ok {
			return
		}
		render.JSON(w, r, tpl.Analyze(t))
	}
}

func get(w http.ResponseWriter, r *http.Request, reg *tpl.Registry) (*core.CanvasTemplate, bool) {
	id := chi.URLParam(r, "id")
	t, err := reg.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		status := api.StatusFor(err)
		if status == http.StatusNotFound {
			api.Error(w, r, status, "Template not found")
			return nil, false
		}
		logrus.WithFields(logrus.Fields{
			"error":       err,
			"template_id": id,
		}).Error("Failed to get template")
		api.Error(w, r, status, "Failed to get template")
		return nil, false
	}
	return t, true
}

// HandleSave stores a saved or brand template under {id}.
func HandleSave(reg *tpl.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}

		var body core.CanvasTemplate
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			api.Error(w, r, http.StatusBadRequest, "Invalid template body: "+err.Error())
			return
		}
		defer r.Body.Close()
		body.ID = chi.URLParam(r, "id")

		saved, err := reg.Save(r.Context(), userID, &body)
		if err != nil {
			status := api.StatusFor(err)
			if status == http.StatusBadRequest {
				api.Error(w, r, status, err.Error())
				return
			}
			logrus.WithFields(logrus.Fields{
				"error":       err,
				"user_id":     userID,
				"template_id": body.ID,
			}).Error("Failed to save template")
			api.Error(w, r, status, "Failed to save template")
			return
		}
		render.JSON(w, r, saved)
	}
}

func HandleDelete(reg *tpl.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if err := reg.Delete(r.Context(), userID, id); err != nil {
			status := api.StatusFor(err)
			switch status {
			case http.StatusBadRequest:
				api.Error(w, r, status, err.Error())
			case http.StatusNotFound:
				api.Error(w, r, status, "Template not found")
			default:
				logrus.WithFields(logrus.Fields{
					"error":       err,
					"user_id":     userID,
					"template_id": id,
				}).Error("Failed to delete template")
				api.Error(w, r, status, "Failed to delete template")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Routes mounts the template endpoints.
func Routes(r chi.Router, reg *tpl.Registry) {
	r.Get("/", HandleList(reg))
	r.Get("/categories", HandleCategories())
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", HandleGet(reg))
		r.Get("/analysis", HandleAnalysis(reg))
		r.Put("/", HandleSave(reg))
		r.Delete("/", HandleDelete(reg))
	})
}
