package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Xmanuel01/Viralclips/config"
	"github.com/Xmanuel01/Viralclips/db"
	"github.com/Xmanuel01/Viralclips/events"
	"github.com/Xmanuel01/Viralclips/fetch"
	"github.com/Xmanuel01/Viralclips/models"
	"github.com/Xmanuel01/Viralclips/pubsub"
	"github.com/Xmanuel01/Viralclips/queue"
	"github.com/Xmanuel01/Viralclips/render"
	"github.com/Xmanuel01/Viralclips/storage"
	"github.com/Xmanuel01/Viralclips/transcribe"
)

// Orchestrator runs pipeline stages delivered by the queue: it owns job state
// transitions, retry decisions, progress reporting and stage chaining. Stage
// packages stay pure; everything cross-cutting lives here.
type Orchestrator struct {
	cfg         *config.Config
	repo        *db.Repository
	store       *storage.BlobStore
	progress    *pubsub.Progress
	emitter     *events.Emitter
	fetcher     *fetch.Fetcher
	transcriber *transcribe.Transcriber
	renderer    *render.Renderer
	queue       *queue.Queue
}

func New(cfg *config.Config, repo *db.Repository, store *storage.BlobStore, progress *pubsub.Progress,
	emitter *events.Emitter, fetcher *fetch.Fetcher, transcriber *transcribe.Transcriber,
	renderer *render.Renderer, q *queue.Queue) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		repo:        repo,
		store:       store,
		progress:    progress,
		emitter:     emitter,
		fetcher:     fetcher,
		transcriber: transcriber,
		renderer:    renderer,
		queue:       q,
	}
}

// Handle processes one delivered stage task to an outcome the queue acts on.
func (o *Orchestrator) Handle(ctx context.Context, task models.StageTask) queue.Outcome {
	job, err := o.repo.GetJob(ctx, task.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf(" [!] job %s not found, dropping task", task.JobID)
			return queue.Outcome{}
		}
		log.Printf(" [!] load job %s: %v", task.JobID, err)
		return queue.Outcome{Requeue: true, Backoff: 5 * time.Second, Priority: 0}
	}

	switch job.Status {
	case models.StatusCompleted, models.StatusCancelled:
		return queue.Outcome{}
	}

	mediaDur := o.mediaDuration(ctx, job)
	budget := StageBudget(job.Type, mediaDur)

	eta := budget.Seconds() / 2
	if err := o.repo.TransitionJob(ctx, job.ID, models.StatusPending, models.StatusRunning,
		map[string]any{"eta_seconds": eta}); err != nil {
		if !errors.Is(err, db.ErrStale) {
			return queue.Outcome{Requeue: true, Backoff: 5 * time.Second}
		}
		// A reclaimed delivery finds the row already running; take over.
		if err := o.repo.TransitionJob(ctx, job.ID, models.StatusRunning, models.StatusRunning, nil); err != nil {
			log.Printf(" [!] job %s moved under us, dropping task", job.ID)
			return queue.Outcome{}
		}
	}
	job.Status = models.StatusRunning
	o.report(ctx, job, 0, nil)

	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	o.watchCancel(stageCtx, job.ID, cancel)

	log.Printf(" [>] job %s: %s starting (budget %s)", job.ID, job.Type, budget)
	stageErr := o.runStage(stageCtx, job)
	if stageErr == nil {
		return o.finish(ctx, job)
	}
	if stageCtx.Err() != nil && ctx.Err() == nil {
		if cur, err := o.repo.GetJob(ctx, job.ID); err == nil && cur.Status == models.StatusCancelled {
			// The stage context was torn down by a cancel request, not
			// the budget. Subprocesses died with the context.
			log.Printf(" [x] job %s: %s cancelled mid-stage", job.ID, job.Type)
			o.emit(ctx, cur, models.StatusCancelled)
			return queue.Outcome{}
		}
		stageErr = models.NewError(models.ErrTimeout, stageErr, "%s exceeded %s budget", job.Type, budget)
	}
	return o.fail(ctx, job, stageErr)
}

// watchCancel tears down the stage context when the job row moves to
// cancelled. The pub/sub channel delivers the signal promptly; the poll
// covers a missed publish.
func (o *Orchestrator) watchCancel(ctx context.Context, jobID uuid.UUID, stop context.CancelFunc) {
	updates, err := o.progress.Subscribe(ctx, jobID)
	if err != nil {
		updates = nil
	}
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if p.Status == models.StatusCancelled {
					stop()
					return
				}
			case <-ticker.C:
				job, err := o.repo.GetJob(ctx, jobID)
				if err == nil && job.Status == models.StatusCancelled {
					stop()
					return
				}
			}
		}
	}()
}

func (o *Orchestrator) runStage(ctx context.Context, job *models.Job) error {
	switch job.Type {
	case models.JobIngest:
		return o.runIngest(ctx, job)
	case models.JobTranscribe:
		return o.runTranscribe(ctx, job)
	case models.JobDetect:
		return o.runDetect(ctx, job)
	case models.JobExport:
		return o.runExport(ctx, job)
	default:
		return models.NewError(models.ErrInternal, nil, "unknown job type %q", job.Type)
	}
}

func (o *Orchestrator) finish(ctx context.Context, job *models.Job) queue.Outcome {
	err := o.repo.TransitionJob(ctx, job.ID, models.StatusRunning, models.StatusCompleted,
		map[string]any{"progress": 100})
	if errors.Is(err, db.ErrStale) {
		// Cancelled mid-stage; the artifact stays but the job does not
		// resurrect.
		log.Printf(" [!] job %s finished after cancellation", job.ID)
		return queue.Outcome{}
	}
	if err != nil {
		log.Printf(" [!] complete job %s: %v", job.ID, err)
		return queue.Outcome{Requeue: true, Backoff: 5 * time.Second}
	}

	job.Status = models.StatusCompleted
	job.Progress = 100
	o.report(ctx, job, 100, nil)
	o.emit(ctx, job, models.StatusCompleted)
	log.Printf(" [√] job %s: %s completed", job.ID, job.Type)

	o.chainNext(ctx, job)
	return queue.Outcome{}
}

func (o *Orchestrator) fail(ctx context.Context, job *models.Job, stageErr error) queue.Outcome {
	kind := models.KindOf(stageErr)
	msg := models.UserMessage(stageErr)
	log.Printf(" [x] job %s: %s failed (%s): %v", job.ID, job.Type, kind, stageErr)

	err := o.repo.TransitionJob(ctx, job.ID, models.StatusRunning, models.StatusFailed,
		map[string]any{"error_kind": string(kind), "error_message": msg})
	if errors.Is(err, db.ErrStale) {
		return queue.Outcome{}
	}
	if err != nil {
		return queue.Outcome{Requeue: true, Backoff: 5 * time.Second}
	}
	job.Status = models.StatusFailed

	d := Decide(kind, job.RetryCount, job.MaxRetries)
	if d.Action == ActionRetry {
		if err := o.repo.RetryJob(ctx, job.ID); err == nil {
			log.Printf(" [i] job %s: retry %d/%d in %s", job.ID, job.RetryCount+1, job.MaxRetries, d.Backoff)
			return queue.Outcome{Requeue: true, Backoff: d.Backoff, Priority: job.Priority}
		}
	}

	o.report(ctx, job, job.Progress, &msg)
	o.emit(ctx, job, models.StatusFailed)
	o.markEntityFailed(ctx, job, msg)
	return queue.Outcome{}
}

// chainNext enqueues the stage that follows automatically. Exports are
// user-initiated and never chained.
func (o *Orchestrator) chainNext(ctx context.Context, job *models.Job) {
	var next models.JobType
	switch job.Type {
	case models.JobIngest:
		next = models.JobTranscribe
	case models.JobTranscribe:
		next = models.JobDetect
	default:
		return
	}

	nextJob := &models.Job{
		ID:         uuid.New(),
		UserID:     job.UserID,
		Type:       next,
		Status:     models.StatusPending,
		MaxRetries: job.MaxRetries,
		Priority:   job.Priority,
		VideoID:    job.VideoID,
		Metadata:   job.Metadata,
	}
	if err := o.repo.CreateJob(ctx, nextJob); err != nil {
		log.Printf(" [x] chain %s after job %s: %v", next, job.ID, err)
		return
	}
	task := models.StageTask{JobID: nextJob.ID, Type: next, VideoID: *job.VideoID, UserID: job.UserID}
	if err := o.queue.Enqueue(ctx, task, nextJob.Priority); err != nil {
		log.Printf(" [x] enqueue %s job %s: %v", next, nextJob.ID, err)
	}
}

// report persists and publishes a progress update. Stale writes mean a newer
// update already landed; those are dropped silently.
func (o *Orchestrator) report(ctx context.Context, job *models.Job, pct int, msg *string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if err := o.repo.UpdateJobProgress(ctx, job.ID, pct); err != nil && !errors.Is(err, db.ErrStale) {
		log.Printf(" [!] progress job %s: %v", job.ID, err)
	}
	if err := o.progress.Publish(ctx, models.ProcessingProgress{
		JobID:     job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  pct,
		Message:   msg,
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf(" [!] publish progress job %s: %v", job.ID, err)
	}
}

func (o *Orchestrator) emit(ctx context.Context, job *models.Job, status models.JobStatus) {
	entityID := job.ID
	if job.VideoID != nil {
		entityID = *job.VideoID
	}
	o.emitter.Emit(ctx, events.StageEvent{
		JobID:     job.ID,
		Stage:     job.Type,
		EntityID:  entityID,
		UserID:    job.UserID,
		Status:    status,
		EmittedAt: time.Now(),
	})
}

// markEntityFailed reflects a permanent job failure onto the entity users see.
func (o *Orchestrator) markEntityFailed(ctx context.Context, job *models.Job, msg string) {
	switch job.Type {
	case models.JobIngest, models.JobTranscribe, models.JobDetect:
		if job.VideoID != nil {
			if err := o.repo.SetVideoStatus(ctx, *job.VideoID, models.StatusFailed, &msg); err != nil {
				log.Printf(" [!] mark video %s failed: %v", *job.VideoID, err)
			}
		}
	case models.JobExport:
		if id, ok := metadataUUID(job.Metadata, "clip_id"); ok {
			if err := o.repo.SetClipStatus(ctx, id, models.StatusFailed); err != nil {
				log.Printf(" [!] mark clip %s failed: %v", id, err)
			}
		}
	}
}

// mediaDuration resolves the duration the stage budget scales with. Exports
// scale with the clip being cut, other stages with the whole video.
func (o *Orchestrator) mediaDuration(ctx context.Context, job *models.Job) float64 {
	if job.Type == models.JobExport {
		if id, ok := metadataUUID(job.Metadata, "clip_id"); ok {
			if clip, err := o.repo.GetClip(ctx, id); err == nil {
				if h, err := o.repo.GetHighlight(ctx, clip.HighlightID); err == nil {
					return h.Duration() + 2*o.cfg.Render.PaddingSec
				}
			}
		}
		return 0
	}
	if job.VideoID == nil {
		return 0
	}
	if video, err := o.repo.GetVideo(ctx, *job.VideoID); err == nil {
		return video.Duration
	}
	return 0
}

func metadataUUID(m models.JSONMap, key string) (uuid.UUID, bool) {
	raw, ok := m[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func metadataString(m models.JSONMap, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
