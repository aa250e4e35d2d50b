package api

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/models"
)

type createVideoRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

// CreateVideo accepts either a multipart upload (field "file") or a JSON body
// with a remote URL, and schedules the ingest job. Size limits are enforced
// before anything is persisted, so a rejected request leaves no record.
func (h *Handler) CreateVideo(c *fiber.Ctx) error {
	userID := userOf(c)
	tier := tierOf(c)
	policy := h.cfg.Policy(tier)

	video := &models.Video{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.StatusPending,
	}
	language := ""

	if file, err := c.FormFile("file"); err == nil {
		if file.Size > policy.MaxFileSizeMB<<20 {
			return fail(c, models.NewError(models.ErrSourceTooLarge, nil,
				"file is %dMB, the %s tier allows %dMB", file.Size>>20, tier, policy.MaxFileSizeMB))
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext == "" {
			ext = ".mp4"
		}
		src, err := file.Open()
		if err != nil {
			return fail(c, err)
		}
		defer src.Close()

		key := fmt.Sprintf("raw/%s%s", video.ID, ext)
		if _, err := h.store.Put(c.Context(), key, src, file.Size, "application/octet-stream"); err != nil {
			return fail(c, err)
		}
		video.Source = models.SourceUpload
		video.StorageKey = key
		video.Title = strings.TrimSuffix(file.Filename, ext)
		language = c.FormValue("language")
	} else {
		var req createVideoRequest
		if err := c.BodyParser(&req); err != nil || req.URL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "provide a file upload or a url",
				"code":  "ERR_BAD_REQUEST",
			})
		}
		video.Source = models.SourceRemote
		video.SourceURL = req.URL
		video.Title = req.Title
		language = req.Language
	}

	if err := h.repo.CreateVideo(c.Context(), video); err != nil {
		return fail(c, err)
	}

	job, err := h.scheduleJob(c, models.JobIngest, video.ID, models.JSONMap{
		"tier":     tier,
		"language": language,
	})
	if err != nil {
		// no orphaned video rows behind a failed schedule
		h.repo.DeleteVideo(c.Context(), video.ID)
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"video": video,
		"job":   job,
	})
}

func (h *Handler) GetVideo(c *fiber.Ctx) error {
	video, err := h.ownedVideo(c)
	if video == nil {
		return err
	}
	return c.JSON(video)
}

// RequestTranscribe schedules a fresh transcription run for an ingested
// video. Transcripts are immutable; a re-run writes a new one.
func (h *Handler) RequestTranscribe(c *fiber.Ctx) error {
	video, err := h.ownedVideo(c)
	if video == nil {
		return err
	}
	if video.StorageKey == "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "video has not finished ingesting",
			"code":  "ERR_NOT_READY",
		})
	}

	var req struct {
		Language string `json:"language"`
	}
	c.BodyParser(&req)

	job, err := h.scheduleJob(c, models.JobTranscribe, video.ID, models.JSONMap{
		"tier":     tierOf(c),
		"language": req.Language,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job": job})
}

// RequestHighlights schedules a re-score of the latest transcript.
func (h *Handler) RequestHighlights(c *fiber.Ctx) error {
	video, err := h.ownedVideo(c)
	if video == nil {
		return err
	}
	if _, err := h.repo.LatestTranscript(c.Context(), video.ID); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "video has no transcript yet",
			"code":  "ERR_NOT_READY",
		})
	}

	job, err := h.scheduleJob(c, models.JobDetect, video.ID, models.JSONMap{"tier": tierOf(c)})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job": job})
}

func (h *Handler) ListHighlights(c *fiber.Ctx) error {
	video, err := h.ownedVideo(c)
	if video == nil {
		return err
	}
	highlights, err := h.repo.ListHighlights(c.Context(), video.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"highlights": highlights})
}

// ownedVideo loads the path video and enforces ownership. Someone else's
// video looks identical to a missing one.
func (h *Handler) ownedVideo(c *fiber.Ctx) (*models.Video, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid video id",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	video, err := h.repo.GetVideo(c.Context(), id)
	if err != nil {
		return nil, notFoundOr(c, err, "video")
	}
	if video.UserID != userOf(c) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "video not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return video, nil
}

// scheduleJob persists a job and enqueues its task at the tier's priority.
func (h *Handler) scheduleJob(c *fiber.Ctx, jobType models.JobType, videoID uuid.UUID, metadata models.JSONMap) (*models.Job, error) {
	policy := h.cfg.Policy(tierOf(c))
	job := &models.Job{
		ID:         uuid.New(),
		UserID:     userOf(c),
		Type:       jobType,
		Status:     models.StatusPending,
		MaxRetries: 3,
		Priority:   policy.Priority,
		VideoID:    &videoID,
		Metadata:   metadata,
	}
	if err := h.repo.CreateJob(c.Context(), job); err != nil {
		return nil, err
	}
	task := models.StageTask{JobID: job.ID, Type: jobType, VideoID: videoID, UserID: job.UserID}
	if err := h.queue.Enqueue(c.Context(), task, job.Priority); err != nil {
		return nil, err
	}
	return job, nil
}
