package scanjob

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docscan"
)

type procFunc func(r io.Reader, w io.Writer) (*docscan.Page, error)

func (f procFunc) Scan(r io.Reader, w io.Writer) (*docscan.Page, error) {
	return f(r, w)
}

// echo copies the source to the result.
var echo = procFunc(func(r io.Reader, w io.Writer) (*docscan.Page, error) {
	_, err := io.Copy(w, r)
	return &docscan.Page{Method: "echo"}, err
})

// blocker blocks until released, started receives a value when the
// processing starts.
type blocker struct {
	started chan struct{}
	release chan struct{}
}

func newBlocker() *blocker {
	return &blocker{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (b *blocker) Scan(r io.Reader, w io.Writer) (*docscan.Page, error) {
	b.started <- struct{}{}
	<-b.release
	return echo(r, w)
}

func testSpool(t *testing.T, p Processor, opt ...SpoolOption) *Spool {
	t.Helper()
	s, err := NewSpool(t.TempDir(), p, opt...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 4), uint8(y * 5), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func wait(t *testing.T, s *Spool, id uuid.UUID) Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := s.Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func TestSpool_Submit(t *testing.T) {
	s := testSpool(t, docscan.New(), WithWorkers(2))
	job, err := s.Submit(context.Background(), "page1.png", testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "page1.png", job.Name)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.False(t, job.Created.IsZero())

	job = wait(t, s, job.ID)
	assert.Equal(t, JobCompleted, job.State)
	assert.Contains(t, job.StateReasons, JSRJobCompletedSuccessfully)
	require.NotNil(t, job.Page)
	assert.Equal(t, 64, job.Page.SourceWidth)
	assert.False(t, job.Processing.IsZero())
	assert.False(t, job.Completed.IsZero())
	assert.Empty(t, job.Error)

	data, err := s.Result(job.ID)
	require.NoError(t, err)
	_, err = jpeg.DecodeConfig(bytes.NewReader(data))
	assert.NoError(t, err, "result must be a JPEG")
}

func TestSpool_Submit_aborted(t *testing.T) {
	tests := []struct {
		name       string
		proc       Processor
		wantReason JobStateReason
	}{
		{"undecodable", docscan.New(), JSRDocumentFormatError},
		{"processor failure", procFunc(func(io.Reader, io.Writer) (*docscan.Page, error) {
			return nil, errors.New("boom")
		}), JSRProcessingError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSpool(t, tt.proc)
			job, err := s.Submit(context.Background(), "", []byte("not an image"))
			require.NoError(t, err)
			assert.NotEmpty(t, job.Name, "default name")

			job = wait(t, s, job.ID)
			assert.Equal(t, JobAborted, job.State)
			assert.Equal(t, []JobStateReason{tt.wantReason, JSRAbortedBySystem}, job.StateReasons)
			assert.NotEmpty(t, job.Error)
			assert.Nil(t, job.Page)

			_, err = s.Result(job.ID)
			assert.ErrorIs(t, err, ErrJobNotDone)
			_, err = os.Stat(s.resultPath(job.ID))
			assert.ErrorIs(t, err, os.ErrNotExist, "partial result must be removed")
		})
	}
}

func TestSpool_Submit_withProcessor(t *testing.T) {
	s := testSpool(t, docscan.New())
	job, err := s.Submit(context.Background(), "x", []byte("raw"), WithProcessor(echo))
	require.NoError(t, err)
	job = wait(t, s, job.ID)
	assert.Equal(t, JobCompleted, job.State)
	data, err := s.Result(job.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), data)
}

func TestSpool_Cancel(t *testing.T) {
	b := newBlocker()
	s := testSpool(t, b, WithWorkers(1))
	ctx := context.Background()

	first, err := s.Submit(ctx, "first", []byte("1"))
	require.NoError(t, err)
	<-b.started
	second, err := s.Submit(ctx, "second", []byte("2"))
	require.NoError(t, err)

	_, err = s.Cancel(first.ID)
	assert.ErrorIs(t, err, ErrJobActive, "processing job can not be cancelled")
	assert.ErrorIs(t, s.Remove(first.ID), ErrJobActive)

	job, err := s.Cancel(second.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, job.State)
	assert.Equal(t, []JobStateReason{JSRJobCancelledByUser}, job.StateReasons)

	_, err = s.Result(second.ID)
	assert.ErrorIs(t, err, ErrJobNotDone)

	close(b.release)
	assert.Equal(t, JobCompleted, wait(t, s, first.ID).State)
	assert.Equal(t, JobCancelled, wait(t, s, second.ID).State)

	_, err = s.Cancel(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSpool_Remove(t *testing.T) {
	s := testSpool(t, echo)
	job, err := s.Submit(context.Background(), "doc", []byte("data"))
	require.NoError(t, err)
	wait(t, s, job.ID)

	require.NoError(t, s.Remove(job.ID))
	_, err = s.Get(job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.Remove(job.ID), ErrJobNotFound)
	for _, name := range []string{s.sourcePath(job.ID), s.resultPath(job.ID)} {
		_, err := os.Stat(name)
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestSpool_List(t *testing.T) {
	s := testSpool(t, echo)
	assert.Empty(t, s.List())
	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c"} {
		job, err := s.Submit(context.Background(), name, []byte(name))
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		wait(t, s, id)
	}
	jobs := s.List()
	require.Len(t, jobs, 3)
	for i := 1; i < len(jobs); i++ {
		assert.False(t, jobs[i].Created.Before(jobs[i-1].Created), "jobs must be sorted")
	}
}

func TestSpool_prune(t *testing.T) {
	b := newBlocker()
	s := testSpool(t, b, WithWorkers(1), WithRetention(time.Hour))
	ctx := context.Background()

	active, err := s.Submit(ctx, "active", []byte("1"))
	require.NoError(t, err)
	<-b.started
	pending, err := s.Submit(ctx, "cancelled", []byte("2"))
	require.NoError(t, err)
	_, err = s.Cancel(pending.ID)
	require.NoError(t, err)

	s.prune(time.Now())
	assert.Len(t, s.List(), 2, "nothing is old enough")

	s.prune(time.Now().Add(2 * time.Hour))
	jobs := s.List()
	require.Len(t, jobs, 1, "only the finished job is removed")
	assert.Equal(t, active.ID, jobs[0].ID)

	close(b.release)
	wait(t, s, active.ID)
}

func TestSpool_Wait(t *testing.T) {
	b := newBlocker()
	s := testSpool(t, b)
	job, err := s.Submit(context.Background(), "slow", []byte("1"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Wait(ctx, job.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = s.Wait(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
	close(b.release)
	wait(t, s, job.ID)
}

func TestSpool_Close(t *testing.T) {
	b := newBlocker()
	s, err := NewSpool("", b, WithWorkers(1))
	require.NoError(t, err)
	dir := s.Dir()

	running, err := s.Submit(context.Background(), "running", []byte("1"))
	require.NoError(t, err)
	<-b.started
	pending, err := s.Submit(context.Background(), "pending", []byte("2"))
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(b.release)
	}()
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second close is a no-op")

	job, err := s.Get(running.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.State)
	job, err = s.Get(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCancelled, job.State)

	_, err = os.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist, "temporary spool directory must be removed")

	_, err = s.Submit(context.Background(), "late", []byte("3"))
	assert.ErrorIs(t, err, ErrSpoolClosed)
}

func TestSpool_Close_concurrentSubmit(t *testing.T) {
	s, err := NewSpool(t.TempDir(), echo, WithWorkers(1), WithQueueSize(64))
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		accepted []uuid.UUID
		start    = make(chan struct{})
		done     sync.WaitGroup
	)
	for range 32 {
		done.Add(1)
		go func() {
			defer done.Done()
			<-start
			job, err := s.Submit(context.Background(), "doc", []byte("data"))
			if err != nil {
				assert.ErrorIs(t, err, ErrSpoolClosed)
				return
			}
			mu.Lock()
			accepted = append(accepted, job.ID)
			mu.Unlock()
		}()
	}
	close(start)
	require.NoError(t, s.Close())
	done.Wait()

	// every accepted job must reach the terminal state.
	for _, id := range accepted {
		job := wait(t, s, id)
		assert.True(t, job.State.IsTerminal(), "job %s is %s", id, job.State)
	}
}

func TestSpool_Remove_concurrent(t *testing.T) {
	s := testSpool(t, echo, WithWorkers(4))
	var ids []uuid.UUID
	for range 32 {
		job, err := s.Submit(context.Background(), "doc", []byte("data"))
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Remove(id); err != nil {
				assert.ErrorIs(t, err, ErrJobActive)
			}
		}()
	}
	wg.Wait()
}

func TestNewSpool_noProcessor(t *testing.T) {
	_, err := NewSpool(t.TempDir(), nil)
	assert.Error(t, err)
}
