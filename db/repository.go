package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Xmanuel01/Viralclips/models"
)

// ErrStale is returned when a conditional update matched no rows, meaning the
// caller raced with a newer write and must not override it.
var ErrStale = errors.New("stale update rejected")

// Repository is the orchestrator's persistence layer. Components read their
// stage inputs and write only their stage outputs through it.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- Videos ---

func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *Repository) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).First(&video, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// UpdateVideoMedia records what the fetch stage learned about the source.
func (r *Repository) UpdateVideoMedia(ctx context.Context, id uuid.UUID, updates models.Video) error {
	return r.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).
		Updates(map[string]any{
			"title":       updates.Title,
			"storage_key": updates.StorageKey,
			"duration":    updates.Duration,
			"file_size":   updates.FileSize,
			"width":       updates.Width,
			"height":      updates.Height,
			"fps":         updates.FPS,
			"container":   updates.Container,
			"updated_at":  time.Now(),
		}).Error
}

func (r *Repository) SetVideoStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg *string) error {
	return r.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		}).Error
}

// DeleteVideo removes a video row that never finished initializing, so a
// rejected ingest leaves no partial record behind.
func (r *Repository) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Video{}, "id = ?", id).Error
}

// --- Transcripts ---

// CreateTranscript persists a new immutable transcript. Re-transcription
// writes a new row; rows are never updated in place.
func (r *Repository) CreateTranscript(ctx context.Context, t *models.Transcript) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// LatestTranscript returns the most recent transcript for a video.
func (r *Repository) LatestTranscript(ctx context.Context, videoID uuid.UUID) (*models.Transcript, error) {
	var t models.Transcript
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Highlights ---

// ReplaceHighlights stores one scoring run's batch, dropping any previous run
// for the video inside a single transaction.
func (r *Repository) ReplaceHighlights(ctx context.Context, videoID uuid.UUID, highlights []models.Highlight) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Highlight{}, "video_id = ?", videoID).Error; err != nil {
			return err
		}
		if len(highlights) == 0 {
			return nil
		}
		return tx.Create(&highlights).Error
	})
}

func (r *Repository) GetHighlight(ctx context.Context, id uuid.UUID) (*models.Highlight, error) {
	var h models.Highlight
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHighlights returns a video's highlights ranked by score descending,
// earlier start first on ties.
func (r *Repository) ListHighlights(ctx context.Context, videoID uuid.UUID) ([]models.Highlight, error) {
	var highlights []models.Highlight
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("score DESC, start_time ASC").
		Find(&highlights).Error
	return highlights, err
}

// --- Clips ---

func (r *Repository) CreateClip(ctx context.Context, clip *models.Clip) error {
	return r.db.WithContext(ctx).Create(clip).Error
}

func (r *Repository) GetClip(ctx context.Context, id uuid.UUID) (*models.Clip, error) {
	var clip models.Clip
	if err := r.db.WithContext(ctx).First(&clip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &clip, nil
}

// CompleteClip records the render artifact. A clip is immutable once
// completed: the update is guarded on the non-terminal status.
func (r *Repository) CompleteClip(ctx context.Context, id uuid.UUID, storageKey string, size int64, duration float64, warnings []string) error {
	res := r.db.WithContext(ctx).Model(&models.Clip{}).
		Where("id = ? AND status NOT IN ?", id, []models.JobStatus{models.StatusCompleted, models.StatusCancelled}).
		Updates(map[string]any{
			"status":      models.StatusCompleted,
			"storage_key": storageKey,
			"file_size":   size,
			"duration":    duration,
			"warnings":    models.StringList(warnings),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *Repository) SetClipStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	return r.db.WithContext(ctx).Model(&models.Clip{}).
		Where("id = ? AND status <> ?", id, models.StatusCompleted).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).Error
}

// --- Jobs ---

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// TransitionJob applies a guarded status transition: the update only lands if
// the job is still in the expected state, so two workers can never move the
// same job concurrently.
func (r *Repository) TransitionJob(ctx context.Context, id uuid.UUID, from, to models.JobStatus, extra map[string]any) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == models.StatusCompleted || to == models.StatusFailed || to == models.StatusCancelled {
		updates["completed_at"] = time.Now()
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// RetryJob moves failed back to pending, consuming one retry. The guard on
// retry_count makes retry-budget exhaustion race-free.
func (r *Repository) RetryJob(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND retry_count < max_retries", id, models.StatusFailed).
		Updates(map[string]any{
			"status":       models.StatusPending,
			"progress":     0,
			"retry_count":  gorm.Expr("retry_count + 1"),
			"updated_at":   time.Now(),
			"completed_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// CancelJob moves a pending or running job to cancelled. Terminal jobs are
// left alone and report ErrStale.
func (r *Repository) CancelJob(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status IN ?", id, []models.JobStatus{models.StatusPending, models.StatusRunning}).
		Updates(map[string]any{
			"status":       models.StatusCancelled,
			"completed_at": time.Now(),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// UpdateJobProgress persists a progress value only while the job is running
// and only if it does not regress. Out-of-order lower values are dropped.
func (r *Repository) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress int) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND progress <= ?", id, models.StatusRunning, progress).
		Updates(map[string]any{"progress": progress, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *Repository) SetJobMetadata(ctx context.Context, id uuid.UUID, metadata models.JSONMap) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]any{"metadata": metadata, "updated_at": time.Now()}).Error
}

// ListStuckJobs surfaces running jobs with no update within the threshold,
// for operator inspection of abandoned work.
func (r *Repository) ListStuckJobs(ctx context.Context, olderThan time.Duration) ([]models.Job, error) {
	var jobs []models.Job
	cutoff := time.Now().Add(-olderThan)
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.StatusRunning, cutoff).
		Order("updated_at ASC").
		Find(&jobs).Error
	return jobs, err
}
