// Package media generates JPEG thumbnails for image items through a
// background worker queue, so item creation never waits on image
// decoding.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/kimhsiao/infovault/backend/internal/logging"
)

// jpegQuality is the encode quality for generated thumbnails.
const jpegQuality = 85

// Job is a single thumbnail generation request.
type Job struct {
	ID            string
	SourcePath    string
	ThumbnailPath string
	Width         int
	Height        int
	CreatedAt     time.Time
	Callback      func(thumbnailPath string, err error)
}

// Stats holds queue counters.
type Stats struct {
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	PendingCount   int
	AvgDurationMs  int64
}

// Queue runs thumbnail generation on background workers.
type Queue struct {
	jobs    chan *Job
	workers int
	wg      sync.WaitGroup
	stopCh  chan struct{}

	mu        sync.Mutex
	isRunning bool
	stats     Stats
}

// NewQueue creates a thumbnail queue with the given capacity and
// worker count.
func NewQueue(queueSize, workers int) *Queue {
	return &Queue{
		jobs:    make(chan *Job, queueSize),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = true
	q.mu.Unlock()

	logging.Info("starting thumbnail queue", logging.Fields{
		"workers":    q.workers,
		"queue_size": cap(q.jobs),
	})

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop drains the workers and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return
	}
	q.isRunning = false
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	logging.Info("thumbnail queue stopped", logging.Fields{
		"total_processed": q.stats.TotalProcessed,
		"failures":        q.stats.FailureCount,
	})
}

// Enqueue requests thumbnail generation without blocking. The callback
// runs on a separate goroutine once the job completes.
func (q *Queue) Enqueue(sourcePath, thumbnailPath string, width, height int, callback func(string, error)) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.isRunning {
		return "", fmt.Errorf("thumbnail queue is not running")
	}

	job := &Job{
		ID:            fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(sourcePath)),
		SourcePath:    sourcePath,
		ThumbnailPath: thumbnailPath,
		Width:         width,
		Height:        height,
		CreatedAt:     time.Now(),
		Callback:      callback,
	}

	select {
	case q.jobs <- job:
		q.stats.PendingCount++
		return job.ID, nil
	default:
		return "", fmt.Errorf("thumbnail queue is full (capacity %d)", cap(q.jobs))
	}
}

// GenerateSync generates a thumbnail on the caller's goroutine. Used
// when the result is needed before responding.
func (q *Queue) GenerateSync(sourcePath, thumbnailPath string, width, height int) error {
	start := time.Now()
	err := generate(sourcePath, thumbnailPath, width, height)
	q.record(time.Since(start), err, false)
	return err
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case job := <-q.jobs:
			q.process(job, id)
		}
	}
}

func (q *Queue) process(job *Job, workerID int) {
	start := time.Now()
	err := generate(job.SourcePath, job.ThumbnailPath, job.Width, job.Height)
	duration := time.Since(start)
	q.record(duration, err, true)

	if job.Callback != nil {
		go job.Callback(job.ThumbnailPath, err)
	}

	if err != nil {
		logging.Error("thumbnail generation failed", err, logging.Fields{
			"job_id": job.ID,
			"worker": workerID,
			"source": job.SourcePath,
		})
		return
	}
	logging.Debug("thumbnail generated", logging.Fields{
		"job_id":      job.ID,
		"worker":      workerID,
		"duration_ms": duration.Milliseconds(),
	})
}

// record folds one completed job into the counters.
func (q *Queue) record(duration time.Duration, err error, pending bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pending {
		q.stats.PendingCount--
	}
	q.stats.TotalProcessed++
	if err != nil {
		q.stats.FailureCount++
	} else {
		q.stats.SuccessCount++
	}
	total := q.stats.AvgDurationMs*int64(q.stats.TotalProcessed-1) + duration.Milliseconds()
	q.stats.AvgDurationMs = total / int64(q.stats.TotalProcessed)
}

// GetStats returns a copy of the current counters.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// IsRunning reports whether workers are active.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isRunning
}

// generate decodes the source image, fits it inside width x height
// preserving aspect ratio, and writes a JPEG.
func generate(sourcePath, thumbnailPath string, width, height int) error {
	img, err := imaging.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source image: %w", err)
	}

	thumb := imaging.Fit(img, width, height, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(thumbnailPath), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	if err := imaging.Save(thumb, thumbnailPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return nil
}
