package exports

import (
	"bytes"
	"fmt"
	"net/http"

	"carousel-studio/core"
	"carousel-studio/export"
	"carousel-studio/handlers/api"
	"carousel-studio/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type startRequest struct {
	DocumentID string       `json:"documentId"`
	// CarouselID exports a saved carousel instead of the slides in the body.
	CarouselID string       `json:"carouselId,omitempty"`
	Slides     []core.Slide `json:"slides,omitempty"`
	Format     string       `json:"format"`
	Quality    string       `json:"quality"`
}

type startResponse struct {
	JobID string `json:"jobId"`
	export.JobStatus
}

// Handler serves the export job endpoints. Jobs are only visible to the
// user who started them.
type Handler struct {
	Jobs      *export.Jobs
	Carousels core.CarouselStore
	// OnStart is called after a job has been accepted.
	OnStart func(export.JobStatus)
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.UserID(w, r)
	if !ok {
		return
	}

	var req startRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, "Invalid export body: "+err.Error())
		return
	}
	defer r.Body.Close()

	opts, err := export.ParseOptions(req.Format, req.Quality)
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	slides, docID := req.Slides, req.DocumentID
	if req.CarouselID != "" {
		if h.Carousels == nil {
			api.Error(w, r, http.StatusNotFound, "Carousel not found")
			return
		}
		saved, err := h.Carousels.Get(r.Context(), userID, req.CarouselID)
		if err != nil {
			api.Error(w, r, api.StatusFor(err), err.Error())
			return
		}
		slides, docID = saved.Slides, saved.ID
	}
	if docID == "" {
		api.Error(w, r, http.StatusBadRequest, "documentId is required")
		return
	}
	if err := core.ValidateSlides(slides); err != nil {
		api.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.Jobs.Start(userID, docID, slides, opts)
	if err != nil {
		api.Error(w, r, api.StatusFor(err), err.Error())
		return
	}
	if h.OnStart != nil {
		h.OnStart(st)
	}

	logrus.WithFields(logrus.Fields{
		"job_id":      st.ID,
		"document_id": docID,
		"user_id":     userID,
		"format":      opts.Format,
		"slides":      len(slides),
	}).Info("Export queued")
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, startResponse{JobID: st.ID, JobStatus: st})
}

// job resolves {id} for the current user, writing a 404 when it is unknown
// or owned by someone else.
func (h *Handler) job(w http.ResponseWriter, r *http.Request) (export.JobStatus, bool) {
	userID, ok := api.UserID(w, r)
	if !ok {
		return export.JobStatus{}, false
	}
	st, err := h.Jobs.Status(chi.URLParam(r, "id"))
	if err != nil || st.Owner != userID {
		api.Error(w, r, http.StatusNotFound, "Export not found")
		return export.JobStatus{}, false
	}
	return st, true
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.job(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, st)
}

// HandleDownload streams the artifact. A single file is served as is; PNG
// sets are bundled into a zip unless ?file= names one of them.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	st, ok := h.job(w, r)
	if !ok {
		return
	}
	id := st.ID
	art, err := h.Jobs.Artifact(id)
	if err != nil {
		api.Error(w, r, api.StatusFor(err), err.Error())
		return
	}

	if name := r.URL.Query().Get("file"); name != "" {
		f, ok := art.File(name)
		if !ok {
			api.Error(w, r, http.StatusNotFound, "File not found in export")
			return
		}
		serveFile(w, f.Name, f.ContentType, f.Data)
		return
	}
	if len(art.Files) == 1 {
		f := art.Files[0]
		serveFile(w, f.Name, f.ContentType, f.Data)
		return
	}

	var buf bytes.Buffer
	if err := art.WriteZip(&buf); err != nil {
		logrus.WithError(err).WithField("job_id", id).Error("Failed to bundle export")
		api.Error(w, r, http.StatusInternalServerError, "Failed to bundle export")
		return
	}
	serveFile(w, "carousel.zip", "application/zip", buf.Bytes())
}

func serveFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	st, ok := h.job(w, r)
	if !ok {
		return
	}
	id := st.ID
	if err := h.Jobs.Cancel(id); err != nil {
		api.Error(w, r, api.StatusFor(err), "Export not found")
		return
	}
	logrus.WithFields(logrus.Fields{
		"job_id":  id,
		"user_id": middleware.UserID(r.Context()),
	}).Info("Export cancel requested")
	w.WriteHeader(http.StatusAccepted)
}

// Routes mounts the export endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleStart)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Get("/download", h.HandleDownload)
		r.Delete("/", h.HandleCancel)
	})
}
