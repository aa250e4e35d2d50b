package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/db"
	"github.com/Xmanuel01/Viralclips/models"
	"github.com/Xmanuel01/Viralclips/render"
)

type exportRequest struct {
	Title      string `json:"title"`
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
	Subtitles  *struct {
		Font       string `json:"font"`
		Size       int    `json:"size"`
		Color      string `json:"color"`
		Background string `json:"background"`
		Position   string `json:"position"`
		Animation  string `json:"animation"`
	} `json:"subtitles"`
}

// ExportClip reserves one daily-quota slot and schedules a render of the
// highlight. The reservation happens before the job exists, so a burst of
// requests can never oversubscribe the quota.
func (h *Handler) ExportClip(c *fiber.Ctx) error {
	userID := userOf(c)
	tier := tierOf(c)
	policy := h.cfg.Policy(tier)

	hlID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid highlight id",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	hl, err := h.repo.GetHighlight(c.Context(), hlID)
	if err != nil {
		return notFoundOr(c, err, "highlight")
	}
	video, err := h.repo.GetVideo(c.Context(), hl.VideoID)
	if err != nil {
		return notFoundOr(c, err, "highlight")
	}
	if video.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "highlight not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	var req exportRequest
	c.BodyParser(&req)

	format := models.ExportFormat(req.Format)
	switch format {
	case models.FormatVertical, models.FormatSquare, models.FormatHorizontal:
	case "":
		format = models.FormatVertical
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "format must be one of 9:16, 1:1, 16:9",
			"code":  "ERR_BAD_REQUEST",
		})
	}

	resolution := req.Resolution
	if resolution == "" || (resolution == "1080p" && policy.MaxResolution == "720p") {
		resolution = policy.MaxResolution
	}
	if resolution != "720p" && resolution != "1080p" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resolution must be 720p or 1080p",
			"code":  "ERR_BAD_REQUEST",
		})
	}

	if _, err := h.quota.ReserveClip(c.Context(), userID, policy.DailyClipLimit); err != nil {
		return fail(c, err)
	}

	title := req.Title
	if title == "" {
		title = hl.Title
	}
	clip := &models.Clip{
		ID:            uuid.New(),
		VideoID:       video.ID,
		HighlightID:   hl.ID,
		UserID:        userID,
		Title:         title,
		ExportFormat:  format,
		Resolution:    resolution,
		HasWatermark:  policy.Watermark,
		SubtitleStyle: subtitleStyle(req),
		Status:        models.StatusPending,
	}
	if err := h.repo.CreateClip(c.Context(), clip); err != nil {
		return fail(c, err)
	}

	job, err := h.scheduleJob(c, models.JobExport, video.ID, models.JSONMap{
		"tier":    tier,
		"clip_id": clip.ID.String(),
	})
	if err != nil {
		h.repo.SetClipStatus(c.Context(), clip.ID, models.StatusFailed)
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"clip": clip,
		"job":  job,
	})
}

// GetClip returns the clip, with a presigned download URL once the render
// completed.
func (h *Handler) GetClip(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid clip id",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	clip, err := h.repo.GetClip(c.Context(), id)
	if err != nil {
		return notFoundOr(c, err, "clip")
	}
	if clip.UserID != userOf(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "clip not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	resp := fiber.Map{"clip": clip}
	if clip.Status == models.StatusCompleted && clip.StorageKey != "" {
		if u, err := h.store.PresignedURL(c.Context(), clip.StorageKey, time.Hour); err == nil {
			resp["download_url"] = u.String()
		}
	}
	return c.JSON(resp)
}

// GetJob merges the persisted job row with the freshest published progress.
func (h *Handler) GetJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job id",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	job, err := h.repo.GetJob(c.Context(), id)
	if err != nil {
		return notFoundOr(c, err, "job")
	}
	if job.UserID != userOf(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	resp := fiber.Map{"job": job}
	if latest, err := h.progress.Latest(c.Context(), job.ID); err == nil && latest != nil {
		if latest.Progress > job.Progress {
			job.Progress = latest.Progress
		}
		resp["live"] = latest
	}
	return c.JSON(resp)
}

// CancelJob stops a pending or running job. Workers watch for the cancelled
// status and tear the stage down; requests against terminal jobs get a 409.
func (h *Handler) CancelJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job id",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	job, err := h.repo.GetJob(c.Context(), id)
	if err != nil {
		return notFoundOr(c, err, "job")
	}
	if job.UserID != userOf(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	if err := h.repo.CancelJob(c.Context(), job.ID); err != nil {
		if errors.Is(err, db.ErrStale) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "job already finished",
				"code":  "ERR_ALREADY_DONE",
			})
		}
		return fail(c, err)
	}
	job.Status = models.StatusCancelled

	meta := job.Metadata
	if meta == nil {
		meta = models.JSONMap{}
	}
	meta["cancel_requested_at"] = time.Now().UTC().Format(time.RFC3339)
	h.repo.SetJobMetadata(c.Context(), job.ID, meta)
	job.Metadata = meta

	if job.Type == models.JobExport {
		if raw, ok := job.Metadata["clip_id"].(string); ok {
			if clipID, err := uuid.Parse(raw); err == nil {
				h.repo.SetClipStatus(c.Context(), clipID, models.StatusCancelled)
			}
		}
	}

	// Publish so a worker mid-stage sees the cancel without polling.
	h.progress.Publish(c.Context(), models.ProcessingProgress{
		JobID:     job.ID,
		Type:      job.Type,
		Status:    models.StatusCancelled,
		Progress:  job.Progress,
		Timestamp: time.Now(),
	})

	return c.JSON(fiber.Map{"job": job})
}

// GetUsage reports the caller's clip quota consumption for today.
func (h *Handler) GetUsage(c *fiber.Ctx) error {
	userID := userOf(c)
	if c.Params("id") != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "cannot read another user's usage",
			"code":  "ERR_FORBIDDEN",
		})
	}
	policy := h.cfg.Policy(tierOf(c))
	used, err := h.quota.Used(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"used":      used,
		"limit":     policy.DailyClipLimit,
		"remaining": max(policy.DailyClipLimit-used, 0),
	})
}

// subtitleStyle converts the request's subtitle block into the stored style
// map. Nil means the clip renders without subtitles.
func subtitleStyle(req exportRequest) models.JSONMap {
	if req.Subtitles == nil {
		return nil
	}
	style := render.DefaultSubtitleStyle()
	if req.Subtitles.Font != "" {
		style.Font = req.Subtitles.Font
	}
	if req.Subtitles.Size > 0 {
		style.Size = req.Subtitles.Size
	}
	if req.Subtitles.Color != "" {
		style.Color = req.Subtitles.Color
	}
	if req.Subtitles.Background != "" {
		style.Background = req.Subtitles.Background
	}
	if req.Subtitles.Position != "" {
		style.Position = req.Subtitles.Position
	}
	if req.Subtitles.Animation != "" {
		style.Animation = models.SubtitleAnimation(req.Subtitles.Animation)
	}
	return models.JSONMap{
		"font":       style.Font,
		"size":       style.Size,
		"color":      style.Color,
		"background": style.Background,
		"position":   style.Position,
		"animation":  string(style.Animation),
	}
}
