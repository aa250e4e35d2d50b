// Package api exposes the pipeline over HTTP. Requests never do media work
// inline: every mutation creates a job and hands it to the queue.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Xmanuel01/Viralclips/config"
	"github.com/Xmanuel01/Viralclips/db"
	"github.com/Xmanuel01/Viralclips/models"
	"github.com/Xmanuel01/Viralclips/pubsub"
	"github.com/Xmanuel01/Viralclips/queue"
	"github.com/Xmanuel01/Viralclips/quota"
	"github.com/Xmanuel01/Viralclips/storage"
)

type Handler struct {
	cfg      *config.Config
	repo     *db.Repository
	store    *storage.BlobStore
	queue    *queue.Queue
	quota    quota.Service
	progress *pubsub.Progress
}

func NewHandler(cfg *config.Config, repo *db.Repository, store *storage.BlobStore,
	q *queue.Queue, quotaSvc quota.Service, progress *pubsub.Progress) *Handler {
	return &Handler{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		queue:    q,
		quota:    quotaSvc,
		progress: progress,
	}
}

// Register mounts all routes. Identity comes from the gateway-injected
// X-User-ID and X-User-Tier headers; this service trusts them.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/healthz", h.Healthz)

	app.Post("/videos", h.requireUser, h.CreateVideo)
	app.Get("/videos/:id", h.requireUser, h.GetVideo)
	app.Post("/videos/:id/transcribe", h.requireUser, h.RequestTranscribe)
	app.Post("/videos/:id/highlights", h.requireUser, h.RequestHighlights)
	app.Get("/videos/:id/highlights", h.requireUser, h.ListHighlights)

	app.Post("/highlights/:id/export", h.requireUser, h.ExportClip)
	app.Get("/clips/:id", h.requireUser, h.GetClip)

	app.Get("/jobs/:id", h.requireUser, h.GetJob)
	app.Post("/jobs/:id/cancel", h.requireUser, h.CancelJob)
	app.Get("/users/:id/usage", h.requireUser, h.GetUsage)

	app.Get("/admin/queue", h.requireUser, h.QueueStats)
}

func (h *Handler) requireUser(c *fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing X-User-ID header",
			"code":  "ERR_UNAUTHENTICATED",
		})
	}
	tier := c.Get("X-User-Tier")
	if tier == "" {
		tier = "free"
	}
	c.Locals("userID", userID)
	c.Locals("tier", tier)
	return c.Next()
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// QueueStats reports leased-but-unacked entries per priority band and jobs
// that stopped reporting progress, for operator inspection.
func (h *Handler) QueueStats(c *fiber.Ctx) error {
	inFlight, err := h.queue.InFlight(c.Context())
	if err != nil {
		return fail(c, err)
	}
	stuck, err := h.repo.ListStuckJobs(c.Context(), 10*time.Minute)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"in_flight":  inFlight,
		"stuck_jobs": stuck,
	})
}

func userOf(c *fiber.Ctx) string {
	return c.Locals("userID").(string)
}

func tierOf(c *fiber.Ctx) string {
	return c.Locals("tier").(string)
}

// statusForKind maps pipeline error kinds onto HTTP statuses.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrQuotaExceeded:
		return fiber.StatusTooManyRequests
	case models.ErrSourceTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case models.ErrSourceNotFound:
		return fiber.StatusNotFound
	case models.ErrUnsupportedFormat:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	kind := models.KindOf(err)
	return c.Status(statusForKind(kind)).JSON(fiber.Map{
		"error": models.UserMessage(err),
		"code":  string(kind),
	})
}

func notFoundOr(c *fiber.Ctx, err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": what + " not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	return fail(c, err)
}
