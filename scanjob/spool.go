package scanjob

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/rusq/docscan"
)

const (
	DefaultRetention     = 24 * time.Hour // how long finished jobs are kept
	DefaultPruneInterval = 10 * time.Second
	DefaultQueueSize     = 100
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobNotDone   = errors.New("job is not completed")
	ErrJobActive    = errors.New("job is being processed")
	ErrSpoolClosed  = errors.New("spool is closed")
	errJobNoProcess = errors.New("no processor")
)

// Spool keeps the jobs, their source images and results.
type Spool struct {
	dir     string
	tempDir bool // dir was created by the spool and is removed on Close
	proc    Processor
	opts    spoolOptions

	queue  chan *job
	stop   context.CancelFunc
	done   chan struct{} // closed on Close
	wg     sync.WaitGroup
	closed sync.Once

	mu   sync.Mutex
	jobs map[uuid.UUID]*job
}

type spoolOptions struct {
	workers       int
	queueSize     int
	retention     time.Duration
	pruneInterval time.Duration
}

type SpoolOption func(*spoolOptions)

// WithWorkers sets the number of concurrent workers, default is the number
// of CPUs.
func WithWorkers(n int) SpoolOption {
	return func(o *spoolOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the maximum number of jobs waiting to be processed.
func WithQueueSize(n int) SpoolOption {
	return func(o *spoolOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithRetention sets the period finished jobs are kept for.
func WithRetention(d time.Duration) SpoolOption {
	return func(o *spoolOptions) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithPruneInterval sets how often the expired jobs are removed.
func WithPruneInterval(d time.Duration) SpoolOption {
	return func(o *spoolOptions) {
		if d > 0 {
			o.pruneInterval = d
		}
	}
}

// NewSpool creates a new spool in dir and starts the workers.  If dir is
// empty, a temporary directory is used, and removed on Close.  p is the
// default processor of the submitted jobs.
func NewSpool(dir string, p Processor, opt ...SpoolOption) (*Spool, error) {
	if p == nil {
		return nil, errJobNoProcess
	}
	opts := spoolOptions{
		workers:       runtime.NumCPU(),
		queueSize:     DefaultQueueSize,
		retention:     DefaultRetention,
		pruneInterval: DefaultPruneInterval,
	}
	for _, o := range opt {
		o(&opts)
	}

	var tempDir bool
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "docscan-spool")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary spool directory: %w", err)
		}
		tempDir = true
		slog.Info("using temporary spool directory", "dir", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
		}
		slog.Info("using spool directory", "dir", dir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Spool{
		dir:     dir,
		tempDir: tempDir,
		proc:    p,
		opts:    opts,
		queue:   make(chan *job, opts.queueSize),
		stop:    cancel,
		done:    make(chan struct{}),
		jobs:    make(map[uuid.UUID]*job),
	}
	for i := range opts.workers {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.wg.Add(1)
	go s.pruner(ctx)
	return s, nil
}

// Dir returns the spool directory.
func (s *Spool) Dir() string {
	return s.dir
}

// Close stops the workers and waits for the jobs in progress to finish.
// Pending jobs are cancelled.
func (s *Spool) Close() error {
	var err error
	s.closed.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
		s.stop()
		s.wg.Wait()
		s.cancelPending()
		if s.tempDir {
			if e := os.RemoveAll(s.dir); e != nil {
				err = fmt.Errorf("failed to remove spool directory %s: %w", s.dir, e)
				return
			}
		}
		slog.Info("spool closed", "dir", s.dir)
	})
	return err
}

func (s *Spool) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.sm.Can(jobEvtCancel) {
			_ = j.sm.Event(context.Background(), jobEvtCancel, JSRAbortedBySystem)
		}
	}
}

func (s *Spool) worker(ctx context.Context, n int) {
	defer s.wg.Done()
	lg := slog.With("worker", n)
	lg.Debug("spool worker started")
	for {
		select {
		case <-ctx.Done():
			lg.Debug("spool worker stopping")
			return
		case j := <-s.queue:
			if ctx.Err() != nil {
				// spool is closing, the job is cancelled by Close.
				return
			}
			s.run(ctx, j)
		}
	}
}

func (s *Spool) pruner(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.prune(now)
		}
	}
}

// prune removes finished jobs created before now minus retention.
func (s *Spool) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active int
	for id, j := range s.jobs {
		job := j.snapshot()
		if job.IsActive() {
			active++
		}
		if job.IsCompleted() && now.Sub(job.Created) > s.opts.retention {
			slog.Info("removing old job", "job_id", id, "created_at", job.Created)
			if err := s.removeLocked(id); err != nil {
				slog.Error("failed to remove old job", "job_id", id, "error", err)
			}
		}
	}
	if active > 0 {
		slog.Debug("spool running", "active_jobs", active)
	}
}

// run processes the job.  Processing failure aborts the job.
func (s *Spool) run(ctx context.Context, j *job) {
	// events are not bound to the worker lifetime, so that a job that
	// started processing always reaches a terminal state.
	ectx := context.WithoutCancel(ctx)
	lg := slog.With("job_id", j.ID)
	if err := j.sm.Event(ectx, jobEvtProcess); err != nil {
		lg.Debug("job skipped", "state", j.sm.Current(), "error", err)
		return
	}
	pg, err := s.process(j)
	j.setResult(pg, err)
	if err != nil {
		lg.Warn("job processing failed", "error", err)
		reason := JSRProcessingError
		if docscan.IsDecodeError(err) {
			reason = JSRDocumentFormatError
		}
		if err := j.sm.Event(ectx, jobEvtAbort, reason, JSRAbortedBySystem); err != nil {
			lg.Error("failed to send abort event", "error", err)
		}
		return
	}
	args := []any{JSRJobCompletedSuccessfully}
	if pg != nil && pg.Blank {
		args = append(args, JSRJobCompletedBlank)
	}
	if err := j.sm.Event(ectx, jobEvtComplete, args...); err != nil {
		lg.Error("failed to send completion event", "error", err)
	}
}

func (s *Spool) process(j *job) (*docscan.Page, error) {
	in, err := os.Open(s.sourcePath(j.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()
	resultFile := s.resultPath(j.ID)
	out, err := os.Create(resultFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file: %w", err)
	}
	pg, err := j.proc.Scan(in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write result file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(resultFile)
		return nil, err
	}
	return pg, nil
}

type SubmitOption func(*job)

// WithProcessor sets the processor for the submitted job, replacing the
// spool default.
func WithProcessor(p Processor) SubmitOption {
	return func(j *job) {
		if p != nil {
			j.proc = p
		}
	}
}

// Submit stores data in the spool and queues the job for processing.  It
// blocks while the queue is full.
func (s *Spool) Submit(ctx context.Context, name string, data []byte, opt ...SubmitOption) (Job, error) {
	select {
	case <-s.done:
		return Job{}, ErrSpoolClosed
	default:
	}
	j := newJob(name, len(data), s.proc)
	for _, o := range opt {
		o(j)
	}

	srcFile := s.sourcePath(j.ID)
	if err := os.WriteFile(srcFile, data, 0o644); err != nil {
		return Job{}, fmt.Errorf("failed to write job file %s: %w", srcFile, err)
	}
	// Close marks the spool done under s.mu, so the job is either rejected
	// here or is seen by cancelPending.
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		os.Remove(srcFile)
		return Job{}, ErrSpoolClosed
	default:
	}
	s.jobs[j.ID] = j
	s.mu.Unlock()

	select {
	case s.queue <- j:
	case <-ctx.Done():
		s.discard(j.ID)
		return Job{}, ctx.Err()
	case <-s.done:
		s.discard(j.ID)
		return Job{}, ErrSpoolClosed
	}
	slog.InfoContext(ctx, "job added", "job_id", j.ID, "job_name", j.Name, "size", len(data))
	return j.snapshot(), nil
}

func (s *Spool) discard(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.removeLocked(id); err != nil {
		slog.Warn("failed to discard job", "job_id", id, "error", err)
	}
}

func (s *Spool) sourcePath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".src")
}

func (s *Spool) resultPath(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".jpg")
}

func (s *Spool) get(id uuid.UUID) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// Get returns the job by its ID.
func (s *Spool) Get(id uuid.UUID) (Job, error) {
	j, err := s.get(id)
	if err != nil {
		return Job{}, err
	}
	return j.snapshot(), nil
}

// List returns all jobs in the spool ordered by creation time.
func (s *Spool) List() []Job {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.snapshot())
	}
	s.mu.Unlock()
	slices.SortFunc(jobs, func(a, b Job) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return jobs
}

// Result returns the scanned image of the completed job.
func (s *Spool) Result(id uuid.UUID) ([]byte, error) {
	j, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if st := j.snapshot().State; st != JobCompleted {
		return nil, fmt.Errorf("%w: %s", ErrJobNotDone, st)
	}
	return os.ReadFile(s.resultPath(id))
}

// Cancel cancels the pending job.  Jobs being processed can not be
// cancelled.
func (s *Spool) Cancel(id uuid.UUID) (Job, error) {
	j, err := s.get(id)
	if err != nil {
		return Job{}, err
	}
	if err := j.sm.Event(context.Background(), jobEvtCancel, JSRJobCancelledByUser); err != nil {
		var ie fsm.InvalidEventError
		if errors.As(err, &ie) {
			return j.snapshot(), fmt.Errorf("%w: %s", ErrJobActive, ie.State)
		}
		return j.snapshot(), err
	}
	return j.snapshot(), nil
}

// Remove cancels the job if it is pending, and deletes it from the spool.
func (s *Spool) Remove(id uuid.UUID) error {
	j, err := s.get(id)
	if err != nil {
		return err
	}
	if err := j.sm.Event(context.Background(), jobEvtCancel, JSRJobCancelledByUser); err != nil {
		// not pending: either processing, caught below, or finished.
		var ie fsm.InvalidEventError
		if !errors.As(err, &ie) {
			return fmt.Errorf("failed to cancel job %s: %w", id, err)
		}
	}
	if j.snapshot().IsActive() {
		return ErrJobActive
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Spool) removeLocked(id uuid.UUID) error {
	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	for _, name := range []string{s.sourcePath(id), s.resultPath(id)} {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove job file %s: %w", name, err)
		}
	}
	delete(s.jobs, id)
	return nil
}

// Wait blocks until the job reaches the terminal state or ctx is done.
func (s *Spool) Wait(ctx context.Context, id uuid.UUID) (Job, error) {
	j, err := s.get(id)
	if err != nil {
		return Job{}, err
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}
