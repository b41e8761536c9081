// Package worker consumes queued extraction jobs, runs the pipeline and
// persists results. Failed jobs are retried with delayed requeue and land
// in the DLQ once attempts are exhausted.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfextract/internal/config"
	"github.com/local/pdfextract/internal/metrics"
	"github.com/local/pdfextract/internal/reader"
	"github.com/local/pdfextract/internal/storage"
	"github.com/local/pdfextract/internal/store"
)

// Queue is the job transport the worker consumes from.
type Queue interface {
	Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
	Ack(ctx context.Context, msgID string) error
	EnqueueDelayed(ctx context.Context, payload []byte, executeAt time.Time) error
	AddDLQ(ctx context.Context, payload []byte, reason string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	IsIdemDone(ctx context.Context, key string) (bool, error)
	MarkIdemDone(ctx context.Context, key string, ttl time.Duration) error
	Depths(ctx context.Context) (int64, int64, int64, error)
}

// Extractor runs the reading-order pipeline against one document.
type Extractor interface {
	ExtractTextAndImages(ctx context.Context, source, imagesDir string) ([]reader.ExtractedPage, error)
	ExtractText(ctx context.Context, source string) ([]string, error)
}

// StatusStore tracks job lifecycle.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
	Get(ctx context.Context, jobID string) (store.Status, bool, error)
}

// ResultStore persists finished extraction output.
type ResultStore interface {
	SavePage(ctx context.Context, jobID string, page int, ep reader.ExtractedPage) error
	SaveResult(ctx context.Context, jobID string, pages []reader.ExtractedPage) error
}

// Breaker keeps repeatedly failing sources in cooldown. Optional.
type Breaker interface {
	IsOpen(ctx context.Context, scope, name string) bool
	Open(ctx context.Context, scope, name string)
	Close(ctx context.Context, scope, name string)
}

// Uploader pushes finished result documents to object storage. Optional.
type Uploader interface {
	UploadResult(ctx context.Context, key string, data []byte, meta *storage.ObjectMetadata) error
	ListNextVersion(ctx context.Context, baseKey string) (int, error)
}

type Dependencies struct {
	Queue     Queue
	Extractor Extractor
	Status    StatusStore
	Results   ResultStore
	Breaker   Breaker
	Uploader  Uploader
}

type Worker struct {
	deps     Dependencies
	cfg      config.Config
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// jobPayload mirrors the map the server enqueues.
type jobPayload struct {
	JobID          string `json:"job_id"`
	Source         string `json:"source"`
	ImagesDir      string `json:"images_dir"`
	TextOnly       bool   `json:"text_only"`
	IdempotencyKey string `json:"idempotency_key"`
	Attempt        int    `json:"attempt"`
}

func New(deps Dependencies, cfg config.Config) *Worker {
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 2
	}
	return &Worker{deps: deps, cfg: cfg, stop: make(chan struct{})}
}

func (w *Worker) Start() {
	for i := 0; i < w.cfg.Worker.Concurrency; i++ {
		w.wg.Add(1)
		go w.loop(i)
	}
	w.wg.Add(1)
	go w.depthLoop()
}

// Stop signals all loops and waits until in-flight jobs finish or ctx
// expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop(id int) {
	defer w.wg.Done()
	consumer := fmt.Sprintf("%s-%d", w.cfg.Queue.Consumer, id)
	log.Info().Int("worker", id).Str("consumer", consumer).Msg("extraction worker started")
	for {
		select {
		case <-w.stop:
			log.Info().Int("worker", id).Msg("extraction worker stopped")
			return
		default:
		}

		msgID, data, err := w.deps.Queue.Dequeue(context.Background(), consumer, 2*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}
		_ = w.deps.Queue.Ack(context.Background(), msgID)

		var job jobPayload
		if err := json.Unmarshal(data, &job); err != nil {
			log.Error().Err(err).Msg("malformed job payload")
			_ = w.deps.Queue.AddDLQ(context.Background(), data, "malformed payload")
			continue
		}
		w.process(job, data)
	}
}

func (w *Worker) process(job jobPayload, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Extract.RequestTimeout)
	defer cancel()

	if job.JobID != "" {
		if cancelled, _ := w.deps.Queue.IsCancelled(ctx, job.JobID); cancelled {
			log.Warn().Str("job_id", job.JobID).Msg("job cancelled before processing; skipping")
			metrics.IncJobProcessed("cancelled")
			return
		}
	}
	if done, _ := w.deps.Queue.IsIdemDone(ctx, job.IdempotencyKey); done {
		log.Debug().Str("job_id", job.JobID).Msg("job already done; skipping duplicate")
		return
	}
	if w.deps.Breaker != nil && w.deps.Breaker.IsOpen(ctx, "extract", job.Source) {
		w.handleFailure(ctx, job, raw, fmt.Errorf("source %s in cooldown", job.Source))
		return
	}

	w.setStatus(ctx, job.JobID, "processing", 10, "extracting", nil)

	pages, err := w.runExtraction(ctx, job)
	if err != nil {
		if w.deps.Breaker != nil {
			w.deps.Breaker.Open(ctx, "extract", job.Source)
		}
		w.handleFailure(ctx, job, raw, err)
		return
	}
	if w.deps.Breaker != nil {
		w.deps.Breaker.Close(ctx, "extract", job.Source)
	}

	// Per-page entries allow inspecting individual pages before or without
	// fetching the whole document.
	for i, ep := range pages {
		if err := w.deps.Results.SavePage(ctx, job.JobID, i, ep); err != nil {
			log.Warn().Err(err).Str("job_id", job.JobID).Int("page", i).Msg("page save failed")
			break
		}
	}
	if err := w.deps.Results.SaveResult(ctx, job.JobID, pages); err != nil {
		w.handleFailure(ctx, job, raw, fmt.Errorf("save result: %w", err))
		return
	}

	meta := map[string]any{"pages": len(pages)}
	if w.deps.Uploader != nil {
		if key, err := w.uploadResult(ctx, job, pages); err != nil {
			log.Warn().Err(err).Str("job_id", job.JobID).Msg("result upload failed; result stays in redis")
		} else {
			meta["result_s3_key"] = key
		}
	}

	now := time.Now()
	_ = w.deps.Status.Set(ctx, job.JobID, store.Status{
		Status: "success", Progress: 100, Message: "completed", End: &now,
		Metadata: meta,
	})
	_ = w.deps.Queue.MarkIdemDone(ctx, job.IdempotencyKey, 24*time.Hour)
	metrics.IncJobProcessed("success")
	log.Info().Str("job_id", job.JobID).Int("pages", len(pages)).Msg("job completed")
}

func (w *Worker) runExtraction(ctx context.Context, job jobPayload) ([]reader.ExtractedPage, error) {
	if !job.TextOnly {
		return w.deps.Extractor.ExtractTextAndImages(ctx, job.Source, job.ImagesDir)
	}
	text, err := w.deps.Extractor.ExtractText(ctx, job.Source)
	if err != nil {
		return nil, err
	}
	pages := make([]reader.ExtractedPage, len(text))
	for i, t := range text {
		pages[i] = reader.ExtractedPage{
			PageTextLines: []string{t},
			PageImages:    []reader.ExtractedImageMeta{},
		}
	}
	return pages, nil
}

func (w *Worker) uploadResult(ctx context.Context, job jobPayload, pages []reader.ExtractedPage) (string, error) {
	data, err := json.Marshal(pages)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	// Re-runs of the same job keep earlier results; each upload takes the
	// next _v{N} suffix under the job's base key.
	baseKey := fmt.Sprintf("%s/%s", w.cfg.Storage.Prefix, job.JobID)
	n, err := w.deps.Uploader.ListNextVersion(ctx, baseKey)
	if err != nil {
		log.Warn().Err(err).Str("base_key", baseKey).Msg("failed to list next version; defaulting to v1")
	}
	if n <= 0 {
		n = 1
	}
	key := fmt.Sprintf("%s_v%d", baseKey, n)
	meta := &storage.ObjectMetadata{
		ContentType: "application/json",
		Metadata:    map[string]string{"job-id": job.JobID, "source": job.Source},
	}
	if err := w.deps.Uploader.UploadResult(ctx, key, data, meta); err != nil {
		return "", err
	}
	return key, nil
}

func (w *Worker) handleFailure(ctx context.Context, job jobPayload, raw []byte, cause error) {
	log.Error().Err(cause).Str("job_id", job.JobID).Int("attempt", job.Attempt).Msg("job failed")

	if job.Attempt < w.cfg.Extract.JobMaxAttempts {
		job.Attempt++
		delay := w.cfg.Extract.RetryBaseDelay * time.Duration(1<<(job.Attempt-1))
		payload, _ := json.Marshal(job)
		if err := w.deps.Queue.EnqueueDelayed(ctx, payload, time.Now().Add(delay)); err == nil {
			w.setStatus(ctx, job.JobID, "processing", 10,
				fmt.Sprintf("retrying, attempt %d/%d", job.Attempt, w.cfg.Extract.JobMaxAttempts), nil)
			metrics.IncJobProcessed("retried")
			return
		}
	}

	_ = w.deps.Queue.AddDLQ(ctx, raw, cause.Error())
	now := time.Now()
	_ = w.deps.Status.Set(ctx, job.JobID, store.Status{
		Status: "failed", Progress: 0, Message: cause.Error(), End: &now,
	})
	metrics.IncJobProcessed("failed")
}

func (w *Worker) setStatus(ctx context.Context, jobID, status string, progress int, msg string, meta map[string]any) {
	st, ok, _ := w.deps.Status.Get(ctx, jobID)
	if !ok {
		st = store.Status{}
	}
	st.Status = status
	st.Progress = progress
	st.Message = msg
	if meta != nil {
		st.Metadata = meta
	}
	_ = w.deps.Status.Set(ctx, jobID, st)
}

// depthLoop exports queue depth gauges while the worker runs.
func (w *Worker) depthLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			ready, delayed, dlq, err := w.deps.Queue.Depths(ctx)
			cancel()
			if err != nil {
				continue
			}
			metrics.SetQueueDepth("ready", ready)
			metrics.SetQueueDepth("delayed", delayed)
			metrics.SetQueueDepth("dlq", dlq)
		}
	}
}
