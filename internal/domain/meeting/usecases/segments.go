package usecases

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
	"github.com/anemonautas/meetingbot/internal/logging"
)

const defaultMaxWorkers = 2

// SegmentTracker discovers rotated audio segments in a task directory.
// Index i becomes ready once the file for i+1 exists.
type SegmentTracker struct {
	task *meeting.Task

	mu   sync.Mutex
	next int
}

func NewSegmentTracker(task *meeting.Task) *SegmentTracker {
	return &SegmentTracker{task: task}
}

// Ready claims every index whose successor file now exists, in order.
func (t *SegmentTracker) Ready() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ready []int
	for exists(t.task.SegmentPath(t.next + 1)) {
		ready = append(ready, t.next)
		t.next++
	}
	return ready
}

// Remaining claims every segment file not yet claimed, including the
// trailing one still open when capture stopped.
func (t *SegmentTracker) Remaining() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := os.ReadDir(t.task.Dir)
	if err != nil {
		return nil
	}
	var rest []int
	for _, e := range entries {
		if idx, ok := meeting.ParseSegmentIndex(e.Name()); ok && idx >= t.next {
			rest = append(rest, idx)
		}
	}
	sort.Ints(rest)
	if n := len(rest); n > 0 {
		t.next = rest[n-1] + 1
	}
	return rest
}

// Open returns the unclaimed index the encoder is still writing.
func (t *SegmentTracker) Open() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next, exists(t.task.SegmentPath(t.next))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SegmentPipeline compresses, uploads and transcribes segments. Each
// index is processed at most once.
type SegmentPipeline struct {
	Compressor    Compressor
	Uploader      Uploader
	Transcription *TranscribeSegment
	MaxWorkers    int
	Log           logrus.FieldLogger

	mu       sync.Mutex
	segments map[int]*meeting.Segment
	wg       sync.WaitGroup
	semOnce  sync.Once
	sem      chan struct{}
}

// Dispatch starts a worker for idx and returns immediately. It reports
// false when idx was already claimed.
func (p *SegmentPipeline) Dispatch(ctx context.Context, task *meeting.Task, idx int) bool {
	seg, ok := p.claim(task, idx)
	if !ok {
		return false
	}

	p.semOnce.Do(func() {
		n := p.MaxWorkers
		if n <= 0 {
			n = defaultMaxWorkers
		}
		p.sem = make(chan struct{}, n)
	})

	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		_ = p.run(ctx, task, seg)
	}()
	return true
}

// Observe records idx as still being written by the encoder.
func (p *SegmentPipeline) Observe(task *meeting.Task, idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.segments == nil {
		p.segments = make(map[int]*meeting.Segment)
	}
	if _, ok := p.segments[idx]; !ok {
		p.segments[idx] = &meeting.Segment{Index: idx, Path: task.SegmentPath(idx), State: meeting.SegmentRecording}
	}
}

// Process runs idx synchronously.
func (p *SegmentPipeline) Process(ctx context.Context, task *meeting.Task, idx int) error {
	seg, ok := p.claim(task, idx)
	if !ok {
		return fmt.Errorf("segment %d already claimed", idx)
	}
	return p.run(ctx, task, seg)
}

// Wait joins outstanding workers for at most timeout and reports whether
// all of them finished. Workers still running are abandoned.
func (p *SegmentPipeline) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Pending lists the claimed segments whose worker has not finished.
func (p *SegmentPipeline) Pending() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx []int
	for i, s := range p.segments {
		if s.State == meeting.SegmentReady || s.State == meeting.SegmentProcessing {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	return idx
}

// Segments returns a snapshot ordered by index.
func (p *SegmentPipeline) Segments() []meeting.Segment {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]meeting.Segment, 0, len(p.segments))
	for _, s := range p.segments {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (p *SegmentPipeline) claim(task *meeting.Task, idx int) (*meeting.Segment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.segments == nil {
		p.segments = make(map[int]*meeting.Segment)
	}
	if seg, ok := p.segments[idx]; ok {
		if seg.State != meeting.SegmentRecording {
			return nil, false
		}
		seg.State = meeting.SegmentReady
		return seg, true
	}
	seg := &meeting.Segment{Index: idx, Path: task.SegmentPath(idx), State: meeting.SegmentReady}
	p.segments[idx] = seg
	return seg, true
}

func (p *SegmentPipeline) setState(seg *meeting.Segment, state meeting.SegmentState, err error) {
	p.mu.Lock()
	seg.State = state
	seg.Err = err
	p.mu.Unlock()
}

func (p *SegmentPipeline) run(ctx context.Context, task *meeting.Task, seg *meeting.Segment) (err error) {
	log := p.Log.WithField(logging.KeySegment, seg.Index)
	p.setState(seg, meeting.SegmentProcessing, nil)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segment worker panic: %v", r)
		}
		if err != nil {
			log.Errorf("segment failed: %v", err)
			p.setState(seg, meeting.SegmentFailed, err)
			return
		}
		log.Info("segment done")
		p.setState(seg, meeting.SegmentDone, nil)
	}()

	compressed := task.CompressedPath(seg.Index)
	if err := p.Compressor.Compress(ctx, seg.Path, compressed); err != nil {
		return fmt.Errorf("compressing: %w", err)
	}

	var errs []error
	if err := p.Uploader.Upload(ctx, task.ID, compressed, filepath.Base(compressed)); err != nil {
		errs = append(errs, fmt.Errorf("uploading: %w", err))
	}

	if p.Transcription != nil {
		if _, err := p.Transcription.Execute(ctx, task, seg.Index, compressed); err != nil {
			errs = append(errs, fmt.Errorf("transcribing: %w", err))
		}
	}
	return errors.Join(errs...)
}
