// Package realtime pushes export job progress to browsers over socket.io.
//
// A client emits "join-export" with a job id and then receives
// "export-progress" while the job runs, then one "export-done" (or
// "export-error" when the export failed).
package realtime

import (
	"net/http"

	"carousel-studio/export"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	EventJoin     = "join-export"
	EventProgress = "export-progress"
	EventDone     = "export-done"
	EventError    = "export-error"
)

// StatusFunc looks up a job, used to answer late joiners.
type StatusFunc func(id string) (export.JobStatus, error)

type Hub struct {
	io     *socketio.Server
	status StatusFunc
	log    logrus.FieldLogger
}

// Room is the socket.io room that receives updates for a job.
func Room(jobID string) socketio.Room {
	return socketio.Room("export:" + jobID)
}

func NewHub(status StatusFunc, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(1000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	h := &Hub{io: socketio.NewServer(nil, opts), status: status, log: log}
	h.io.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		h.connect(socket)
	})
	return h
}

func (h *Hub) connect(socket *socketio.Socket) {
	me := socketio.Room(socket.Id())
	log := h.log.WithField("socket_id", socket.Id())
	log.Debug("Socket connected")

	socket.On(EventJoin, func(datas ...any) {
		jobID, ok := firstString(datas)
		if !ok {
			h.io.To(me).Emit(EventError, map[string]string{"error": "job id is required"})
			return
		}
		st, err := h.status(jobID)
		if err != nil {
			h.io.To(me).Emit(EventError, map[string]string{"jobId": jobID, "error": err.Error()})
			return
		}
		socket.Join(Room(jobID))
		log.WithField("job_id", jobID).Debug("Socket joined export")

		// The job may already be past its last broadcast.
		h.io.To(me).Emit(eventFor(st), payloadFor(st))
	})
	socket.On("disconnect", func(...any) {
		socket.RemoveAllListeners("")
		log.Debug("Socket disconnected")
	})
}

func firstString(datas []any) (string, bool) {
	if len(datas) == 0 {
		return "", false
	}
	s, ok := datas[0].(string)
	return s, ok && s != ""
}

// Notify broadcasts a job update to its room. It matches the notify
// callback of export.Jobs.
func (h *Hub) Notify(st export.JobStatus) {
	h.io.To(Room(st.ID)).Emit(eventFor(st), payloadFor(st))
}

func eventFor(st export.JobStatus) string {
	switch st.State {
	case export.JobRunning:
		return EventProgress
	case export.JobFailed:
		return EventError
	}
	return EventDone
}

func payloadFor(st export.JobStatus) map[string]any {
	if st.Finished() {
		return donePayload(st)
	}
	return progressPayload(st)
}

func progressPayload(st export.JobStatus) map[string]any {
	return map[string]any{
		"jobId":    st.ID,
		"state":    st.State,
		"progress": st.Progress,
	}
}

func donePayload(st export.JobStatus) map[string]any {
	p := progressPayload(st)
	if st.Error != "" {
		p["error"] = st.Error
	}
	if st.SlideIndex != nil {
		p["slideIndex"] = *st.SlideIndex
	}
	if len(st.Files) > 0 {
		names := make([]string, len(st.Files))
		for i, f := range st.Files {
			names[i] = f.Name
		}
		p["files"] = names
	}
	return p
}

// Handler serves the socket.io transport.
func (h *Hub) Handler() http.Handler {
	return h.io.ServeHandler(nil)
}

func (h *Hub) Close() {
	h.io.Close(nil)
}
