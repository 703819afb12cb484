// Package runner serializes fill and reset jobs behind a single active task,
// the way the interactive front end of the filler drives it.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"fillstorage/pkg/filler"
	"fillstorage/pkg/log"
	"fillstorage/pkg/models"
)

var (
	// ErrBusy is returned when a job is already active.
	ErrBusy = errors.New("a job is already running")

	errResetRequested = errors.New("reset requested")
)

// Outcome tells what a reset request did.
type Outcome string

const (
	OutcomeReset         Outcome = "reset"
	OutcomeCancelledFill Outcome = "cancelled_fill"
)

// StorageFiller is the part of *filler.Filler the runner drives.
type StorageFiller interface {
	Dir() string
	FreeBytes() uint64
	Fill(ctx context.Context, report filler.ProgressFunc) (int64, error)
	Reset() (int, error)
	Files() ([]filler.DummyFile, error)
}

// Runner owns at most one active job.
type Runner struct {
	filler StorageFiller
	now    func() time.Time

	mu     sync.Mutex
	active *job
	status models.JobStatus
}

// job is one fill or reset. final is written before done is closed.
type job struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
	final  models.JobStatus
}

// New creates a Runner driving f.
func New(f StorageFiller) *Runner {
	return &Runner{
		filler: f,
		now:    time.Now,
		status: models.JobStatus{State: models.JobIdle},
	}
}

// StartFill launches a fill on its own goroutine. The job is cancelled when
// ctx is, by Cancel, or by a reset request.
func (r *Runner) StartFill(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrBusy
	}

	jobCtx, cancel := context.WithCancelCause(ctx)
	j := &job{cancel: cancel, done: make(chan struct{})}
	r.active = j
	r.begin(models.OperationFill)

	log.Info().Str("dir", r.filler.Dir()).Msg("Fill job started")
	go r.runFill(jobCtx, j)
	return nil
}

func (r *Runner) runFill(ctx context.Context, j *job) {
	defer close(j.done)
	defer j.cancel(nil)

	remaining, err := r.filler.Fill(ctx, r.progress)
	free := r.filler.FreeBytes()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.Remaining = remaining
	r.setFree(free)
	switch {
	case errors.Is(err, filler.ErrCancelled):
		r.status.State = models.JobCancelled
		log.Info().Int64("remaining", remaining).Msg("Cancelled")
	case err != nil:
		r.status.State = models.JobFailed
		r.status.Error = err.Error()
		log.Error().Err(err).Msg("Fill job failed")
	case remaining > 0:
		r.status.State = models.JobStopped
		log.Warn().Int64("remaining", remaining).Msg("Stopped before disk full")
	default:
		r.status.State = models.JobCompleted
		log.Info().Uint64("free_bytes", free).Msg("Fill job completed")
	}
	r.finish(j)
}

// RequestReset deletes the dummy files. While a fill is active it cancels
// the fill instead and returns OutcomeCancelledFill.
func (r *Runner) RequestReset() (Outcome, int, error) {
	r.mu.Lock()
	if active := r.active; active != nil {
		operation := r.status.Operation
		r.mu.Unlock()

		if operation == models.OperationFill && active.cancel != nil {
			log.Info().Msg("Reset requested while filling, cancelling fill")
			active.cancel(errResetRequested)
			return OutcomeCancelledFill, 0, nil
		}
		return "", 0, ErrBusy
	}

	j := &job{done: make(chan struct{})}
	r.active = j
	r.begin(models.OperationReset)
	r.mu.Unlock()

	deleted, err := r.filler.Reset()
	free := r.filler.FreeBytes()

	r.mu.Lock()
	r.status.Deleted = deleted
	r.setFree(free)
	if err != nil {
		r.status.State = models.JobFailed
		r.status.Error = err.Error()
	} else {
		r.status.State = models.JobCompleted
	}
	r.finish(j)
	r.mu.Unlock()
	close(j.done)

	return OutcomeReset, deleted, err
}

// Cancel cancels the active fill, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()

	if active != nil && active.cancel != nil {
		active.cancel(context.Canceled)
	}
}

// Wait blocks until the active job finished and returns its final status,
// even if another job has started since. With no active job it returns the
// current status.
func (r *Runner) Wait() models.JobStatus {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()

	if active == nil {
		return r.Status()
	}
	return active.wait()
}

func (j *job) wait() models.JobStatus {
	<-j.done
	return j.final
}

// Shutdown cancels the active job and waits for it.
func (r *Runner) Shutdown() models.JobStatus {
	r.Cancel()
	return r.Wait()
}

// Active reports whether a job is running.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Status returns a snapshot of the current or last job.
func (r *Runner) Status() models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// FreeSpace queries the target volume.
func (r *Runner) FreeSpace() models.FreeSpace {
	free := r.filler.FreeBytes()
	return models.FreeSpace{
		Dir:       r.filler.Dir(),
		FreeBytes: free,
		FreeHuman: humanize.Bytes(free),
	}
}

// Files lists the dummy files currently on disk.
func (r *Runner) Files() (models.FileList, error) {
	files, err := r.filler.Files()
	if err != nil {
		return models.FileList{}, err
	}

	list := models.FileList{Files: make([]models.DummyFile, 0, len(files))}
	for _, file := range files {
		list.Files = append(list.Files, models.DummyFile{Index: file.Index, Path: file.Path, Size: file.Size})
		list.TotalBytes += file.Size
	}
	return list, nil
}

func (r *Runner) progress(free uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setFree(free)
}

// begin, setFree and finish expect r.mu to be held.
func (r *Runner) begin(operation models.Operation) {
	started := r.now()
	r.status = models.JobStatus{
		Operation: operation,
		State:     models.JobRunning,
		FreeBytes: r.status.FreeBytes,
		FreeHuman: r.status.FreeHuman,
		StartedAt: &started,
	}
}

func (r *Runner) setFree(free uint64) {
	r.status.FreeBytes = free
	r.status.FreeHuman = humanize.Bytes(free)
}

func (r *Runner) finish(j *job) {
	finished := r.now()
	r.status.FinishedAt = &finished
	j.final = r.status
	r.active = nil
}
