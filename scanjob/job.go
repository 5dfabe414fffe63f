// Package scanjob implements the scan job spool: submitted images are
// stored on disk, processed by a bounded pool of workers and kept until the
// retention period expires.
package scanjob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/rusq/docscan"
)

// Processor converts the source image read from r into the scanned image
// written to w.  [docscan.Scanner] implements it.
type Processor interface {
	Scan(r io.Reader, w io.Writer) (*docscan.Page, error)
}

// JobState represents the state of a job.
type JobState int32

const (
	JobPending JobState = iota + 1
	JobProcessing
	JobCancelled
	JobAborted
	JobCompleted
)

var jobStateNames = map[JobState]string{
	JobPending:    "pending",
	JobProcessing: "processing",
	JobCancelled:  "cancelled",
	JobAborted:    "aborted",
	JobCompleted:  "completed",
}

func (s JobState) String() string {
	if name, ok := jobStateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s JobState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JobState) UnmarshalText(b []byte) error {
	for st, name := range jobStateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown job state: %q", b)
}

// IsTerminal returns true if the job will not change its state anymore.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobCancelled || s == JobAborted
}

// fsm events for job state transitions.
const (
	jobEvtProcess  = "process"
	jobEvtAbort    = "abort"
	jobEvtComplete = "complete"
	jobEvtCancel   = "cancel"
)

/*
                                      +----> completed
                                     /
   ---> pending -------> processing +
           |                         \
           +----> cancelled           +----> aborted
*/

var jobFsmEvts = []fsm.EventDesc{
	{
		Name: jobEvtProcess,
		Src:  []string{JobPending.String()},
		Dst:  JobProcessing.String(),
	},
	{
		Name: jobEvtCancel, // event args: JobStateReason...
		Src:  []string{JobPending.String()},
		Dst:  JobCancelled.String(),
	},
	{
		Name: jobEvtComplete,
		Src:  []string{JobProcessing.String()},
		Dst:  JobCompleted.String(),
	},
	{
		Name: jobEvtAbort, // event args: JobStateReason...
		Src:  []string{JobProcessing.String()},
		Dst:  JobAborted.String(),
	},
}

// JobStateReason is the reason for the current job state.
type JobStateReason string

const (
	JSRJobQueued                JobStateReason = "job-queued"
	JSRJobTransforming          JobStateReason = "job-transforming"
	JSRJobCancelledByUser       JobStateReason = "job-cancelled-by-user"
	JSRAbortedBySystem          JobStateReason = "aborted-by-system"
	JSRDocumentFormatError      JobStateReason = "document-format-error"
	JSRProcessingError          JobStateReason = "processing-error"
	JSRJobCompletedSuccessfully JobStateReason = "job-completed-successfully"
	JSRJobCompletedBlank        JobStateReason = "job-completed-blank-page"
)

// Job is a point in time copy of the job attributes.
type Job struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	State        JobState         `json:"state"`
	StateReasons []JobStateReason `json:"state_reasons"`
	Size         int              `json:"size"` // source size in bytes
	Created      time.Time        `json:"created"`
	Processing   time.Time        `json:"processing,omitzero"`
	Completed    time.Time        `json:"completed,omitzero"` // time the job reached the terminal state
	Page         *docscan.Page    `json:"page,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func (j Job) IsCompleted() bool {
	return j.State.IsTerminal()
}

func (j Job) IsActive() bool {
	return j.State == JobProcessing
}

// job is the spooled job.  All exported fields of the embedded Job are
// guarded by mu.
type job struct {
	mu sync.Mutex
	Job

	proc Processor
	sm   *fsm.FSM
	done chan struct{} // closed when the job reaches the terminal state
}

func newJob(name string, size int, proc Processor) *job {
	j := &job{
		Job: Job{
			ID:           uuid.New(),
			Name:         name,
			State:        JobPending,
			StateReasons: []JobStateReason{JSRJobQueued},
			Size:         size,
			Created:      time.Now(),
		},
		proc: proc,
		done: make(chan struct{}),
	}
	if j.Name == "" {
		j.Name = "job-" + j.ID.String()[:8]
	}
	j.sm = makeJobFSM(j)
	return j
}

func makeJobFSM(j *job) *fsm.FSM {
	lg := slog.With("job_id", j.ID, "job_name", j.Name)
	return fsm.NewFSM(
		JobPending.String(),
		jobFsmEvts,
		fsm.Callbacks{
			jobEvtProcess: func(ctx context.Context, e *fsm.Event) {
				lg.DebugContext(ctx, "job processing started")
				j.mu.Lock()
				defer j.mu.Unlock()
				j.State = JobProcessing
				j.StateReasons = []JobStateReason{JSRJobTransforming}
				j.Processing = time.Now()
			},
			jobEvtAbort: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job aborted", "reasons", e.Args)
				j.finish(JobAborted, reasonsFromArgs(e.Args, JSRAbortedBySystem))
			},
			jobEvtComplete: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job completed")
				j.finish(JobCompleted, reasonsFromArgs(e.Args, JSRJobCompletedSuccessfully))
			},
			jobEvtCancel: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job cancelled")
				j.finish(JobCancelled, reasonsFromArgs(e.Args, JSRJobCancelledByUser))
			},
		},
	)
}

// finish moves the job to the terminal state.
func (j *job) finish(st JobState, reasons []JobStateReason) {
	j.mu.Lock()
	j.State = st
	j.StateReasons = reasons
	j.Completed = time.Now()
	j.mu.Unlock()
	close(j.done)
}

func reasonsFromArgs(args []any, def JobStateReason) []JobStateReason {
	reasons := make([]JobStateReason, 0, len(args))
	for _, arg := range args {
		if reason, ok := arg.(JobStateReason); ok {
			reasons = append(reasons, reason)
		} else {
			slog.Warn("invalid argument for job state reason", "arg", arg)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, def)
	}
	return reasons
}

func (j *job) snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	c := j.Job
	c.StateReasons = slices.Clone(j.StateReasons)
	if j.Page != nil {
		pg := *j.Page
		c.Page = &pg
	}
	return c
}

// setResult records the outcome of processing.
func (j *job) setResult(pg *docscan.Page, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Page = pg
	if err != nil {
		j.Error = err.Error()
	}
}
