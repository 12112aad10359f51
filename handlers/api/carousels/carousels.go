package carousels

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"carousel-studio/core"
	"carousel-studio/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// saveRequest is the body of a create or update.
type saveRequest struct {
	Name       string       `json:"name"`
	TemplateID string       `json:"templateId"`
	Thumbnail  string       `json:"thumbnail"`
	Slides     []core.Slide `json:"slides"`
}

func (req *saveRequest) carousel(userID, id string) (*core.Carousel, error) {
	if err := core.ValidateSlides(req.Slides); err != nil {
		if errors.Is(err, core.ErrCapacityExceeded) || errors.Is(err, core.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = id
	}
	return &core.Carousel{
		ID:         id,
		UserID:     userID,
		Name:       name,
		TemplateID: req.TemplateID,
		Thumbnail:  req.Thumbnail,
		Slides:     req.Slides,
	}, nil
}

func HandleListCarousels(store core.CarouselStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}

		carousels, err := store.List(r.Context(), userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"user_id": userID,
			}).Error("Failed to list carousels")
			api.Error(w, r, http.StatusInternalServerError, "Failed to list carousels")
			return
		}

		// If the user has no carousels, return an empty slice instead of null.
		if carousels == nil {
			carousels = []*core.Carousel{}
		}

		render.JSON(w, r, carousels)
	}
}

func HandleGetCarousel(store core.CarouselStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}

		key := chi.URLParam(r, "key")
		carousel, err := store.Get(r.Context(), userID, key)
		if err != nil {
			status := api.StatusFor(err)
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"user_id": userID,
				"key":     key,
			}).Warn("Failed to get carousel")
			if status == http.StatusNotFound {
				api.Error(w, r, status, "Carousel not found")
				return
			}
			api.Error(w, r, status, "Failed to get carousel")
			return
		}

		render.JSON(w, r, carousel)
	}
}

// HandleCreateCarousel saves a new carousel under a fresh id.
func HandleCreateCarousel(store core.CarouselStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}
		save(w, r, store, userID, core.NewID("car"), http.StatusCreated)
	}
}

func HandleSaveCarousel(store core.CarouselStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}
		save(w, r, store, userID, chi.URLParam(r, "key"), http.StatusOK)
	}
}

func save(w http.ResponseWriter, r *http.Request, store core.CarouselStore, userID, key string, status int) {
	var req saveRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, "Invalid carousel body: "+err.Error())
		return
	}
	defer r.Body.Close()

	carousel, err := req.carousel(userID, key)
	if err != nil {
		api.Error(w, r, api.StatusFor(err), err.Error())
		return
	}

	if err := store.Save(r.Context(), carousel); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":   err,
			"user_id": userID,
			"key":     key,
		}).Error("Failed to save carousel")
		if s := api.StatusFor(err); s == http.StatusBadRequest {
			api.Error(w, r, s, err.Error())
			return
		}
		api.Error(w, r, http.StatusInternalServerError, "Failed to save carousel")
		return
	}

	render.Status(r, status)
	render.JSON(w, r, carousel.Summary())
}

func HandleDeleteCarousel(store core.CarouselStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.UserID(w, r)
		if !ok {
			return
		}

		key := chi.URLParam(r, "key")
		if err := store.Delete(r.Context(), userID, key); err != nil {
			status := api.StatusFor(err)
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"user_id": userID,
				"key":     key,
			}).Error("Failed to delete carousel")
			if status == http.StatusNotFound {
				api.Error(w, r, status, "Carousel not found")
				return
			}
			api.Error(w, r, status, "Failed to delete carousel")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Routes mounts the carousel endpoints.
func Routes(r chi.Router, store core.CarouselStore) {
	r.Get("/", HandleListCarousels(store))
	r.Post("/", HandleCreateCarousel(store))
	r.Route("/{key}", func(r chi.Router) {
		r.Get("/", HandleGetCarousel(store))
		r.Put("/", HandleSaveCarousel(store))
		r.Delete("/", HandleDeleteCarousel(store))
	})
}
