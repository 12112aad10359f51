package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"carousel-studio/core"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JobState is the lifecycle stage of a background export.
type JobState string

const (
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// DefaultRetention is how long finished jobs and their artifacts are kept.
const DefaultRetention = 30 * time.Minute

var (
	ErrJobNotFound = errors.New("export job not found")
	ErrJobNotReady = errors.New("export job has no artifact")
)

// Runner is the export operation executed by a job.
type Runner interface {
	Export(ctx context.Context, slides []core.Slide, opts Options, progress func(float64)) (*Artifact, error)
}

// JobStatus is a snapshot of a job.
type JobStatus struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"documentId"`
	// Owner is the user who started the job.
	Owner      string        `json:"-"`
	State      JobState      `json:"state"`
	Progress   float64       `json:"progress"`
	Options    Options       `json:"options"`
	Error      string        `json:"error,omitempty"`
	SlideIndex *int          `json:"slideIndex,omitempty"`
	Files      []File        `json:"files,omitempty"`
	Duration   time.Duration `json:"-"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Finished reports whether the job has left the running state.
func (s JobStatus) Finished() bool { return s.State != JobRunning }

type job struct {
	status   JobStatus
	artifact *Artifact
	cancel   context.CancelFunc
	done     chan struct{}
}

// Jobs runs exports in the background, one at a time per document. Progress
// and the final state are reported through notify.
type Jobs struct {
	runner Runner
	notify func(JobStatus)
	log    logrus.FieldLogger

	// Retention bounds how long finished jobs stay retrievable.
	Retention time.Duration

	mu     sync.Mutex
	jobs   map[string]*job
	active map[string]string
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewJobs(runner Runner, log logrus.FieldLogger, notify func(JobStatus)) *Jobs {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if notify == nil {
		notify = func(JobStatus) {}
	}
	return &Jobs{
		runner:    runner,
		notify:    notify,
		log:       log,
		Retention: DefaultRetention,
		jobs:      make(map[string]*job),
		active:    make(map[string]string),
		now:       time.Now,
	}
}

// Start launches an export of slides for owner's documentID. It returns
// core.ErrBusy when that document already has a running export.
func (j *Jobs) Start(owner, documentID string, slides []core.Slide, opts Options) (JobStatus, error) {
	if err := opts.Validate(); err != nil {
		return JobStatus{}, err
	}
	if len(slides) == 0 {
		return JobStatus{}, fmt.Errorf("%w: no slides to export", core.ErrExportFailed)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.pruneLocked()
	key := activeKey(owner, documentID)
	if id, ok := j.active[key]; ok {
		return JobStatus{}, fmt.Errorf("%w: export %s is running", core.ErrBusy, id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := j.now()
	jb := &job{
		status: JobStatus{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Owner:      owner,
			State:      JobRunning,
			Options:    opts,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	j.jobs[jb.status.ID] = jb
	j.active[key] = jb.status.ID

	snapshot := core.CloneSlides(slides, false)
	j.wg.Add(1)
	go j.run(ctx, jb, snapshot)
	return jb.status, nil
}

func activeKey(owner, documentID string) string {
	return owner + "\x00" + documentID
}

func (j *Jobs) run(ctx context.Context, jb *job, slides []core.Slide) {
	defer j.wg.Done()
	defer close(jb.done)
	defer jb.cancel()

	log := j.log.WithFields(logrus.Fields{
		"job_id":      jb.status.ID,
		"document_id": jb.status.DocumentID,
	})
	log.Info("Export started")

	steps := 0
	art, err := j.export(ctx, slides, jb.status.Options, &steps, func(p float64) {
		j.mu.Lock()
		if p <= jb.status.Progress || jb.status.State != JobRunning {
			j.mu.Unlock()
			return
		}
		jb.status.Progress = p
		jb.status.UpdatedAt = j.now()
		st := jb.status
		j.mu.Unlock()
		j.notify(st)
	})

	j.mu.Lock()
	now := j.now()
	jb.status.UpdatedAt = now
	jb.status.Duration = now.Sub(jb.status.CreatedAt)
	switch {
	case ctx.Err() != nil:
		jb.status.State = JobCancelled
		jb.status.Error = "export cancelled"
	case err != nil:
		jb.status.State = JobFailed
		jb.status.Error = err.Error()
		var expErr *core.ExportError
		if errors.As(err, &expErr) {
			idx := expErr.SlideIndex
			jb.status.SlideIndex = &idx
		}
	default:
		jb.status.State = JobDone
		jb.status.Progress = 1
		jb.status.Files = art.Files
		jb.artifact = art
	}
	delete(j.active, activeKey(jb.status.Owner, jb.status.DocumentID))
	st := jb.status
	j.mu.Unlock()

	log.WithFields(logrus.Fields{
		"state":    st.State,
		"duration": st.Duration.String(),
	}).Info("Export finished")
	j.notify(st)
}

// export calls the runner and turns a panic into a *core.ExportError. The
// failing slide is taken to be the one after the last progress step.
func (j *Jobs) export(ctx context.Context, slides []core.Slide, opts Options, steps *int, progress func(float64)) (art *Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx := min(*steps, len(slides)-1)
			art, err = nil, &core.ExportError{SlideIndex: idx, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return j.runner.Export(ctx, slides, opts, func(p float64) {
		*steps++
		progress(p)
	})
}

// Status returns the current snapshot of a job.
func (j *Jobs) Status(id string) (JobStatus, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	return jb.status, nil
}

// Artifact returns the output of a finished job.
func (j *Jobs) Artifact(id string) (*Artifact, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	jb, ok := j.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if jb.artifact == nil {
		return nil, fmt.Errorf("%w: job is %s", ErrJobNotReady, jb.status.State)
	}
	return jb.artifact, nil
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (j *Jobs) Cancel(id string) error {
	j.mu.Lock()
	jb, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	jb.cancel()
	return nil
}

// Wait blocks until the job finishes or ctx is done.
func (j *Jobs) Wait(ctx context.Context, id string) (JobStatus, error) {
	j.mu.Lock()
	jb, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	select {
	case <-jb.done:
		return j.Status(id)
	case <-ctx.Done():
		return JobStatus{}, ctx.Err()
	}
}

// Close cancels every running job and waits for them to stop.
func (j *Jobs) Close() {
	j.mu.Lock()
	for _, jb := range j.jobs {
		jb.cancel()
	}
	j.mu.Unlock()
	j.wg.Wait()
}

func (j *Jobs) pruneLocked() {
	cutoff := j.now().Add(-j.Retention)
	for id, jb := range j.jobs {
		if jb.status.Finished() && jb.status.UpdatedAt.Before(cutoff) {
			delete(j.jobs, id)
		}
	}
}
