package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/fetch"
	"github.com/Xmanuel01/Viralclips/highlight"
	"github.com/Xmanuel01/Viralclips/media"
	"github.com/Xmanuel01/Viralclips/models"
	"github.com/Xmanuel01/Viralclips/render"
)

// runIngest resolves the video's source into a probed, decodable media file
// and publishes it to blob storage for the later stages.
func (o *Orchestrator) runIngest(ctx context.Context, job *models.Job) error {
	video, err := o.repo.GetVideo(ctx, *job.VideoID)
	if err != nil {
		return models.NewError(models.ErrInternal, err, "load video %s", job.VideoID)
	}

	tier := metadataString(job.Metadata, "tier", "free")
	policy := o.cfg.Policy(tier)

	src := fetch.Source{Kind: video.Source, Locator: video.SourceURL}
	if video.Source == models.SourceUpload {
		local, err := o.pullToTemp(ctx, video.StorageKey)
		if err != nil {
			return err
		}
		defer os.Remove(local)
		src.Locator = local
	}

	lm, err := o.fetcher.Fetch(ctx, src, fetch.Policy{
		MaxFileSize: policy.MaxFileSizeMB << 20,
		MaxAttempts: 3,
	}, func(pct int) { o.report(ctx, job, pct*90/100, nil) })
	if err != nil {
		return err
	}
	defer os.Remove(lm.Path)

	key := fmt.Sprintf("media/%s/source%s", video.ID, filepath.Ext(lm.Path))
	if _, err := o.store.PutFile(ctx, key, lm.Path, "video/mp4"); err != nil {
		return models.NewError(models.ErrInternal, err, "store media for video %s", video.ID)
	}

	title := video.Title
	if title == "" {
		title = lm.Title
	}
	if err := o.repo.UpdateVideoMedia(ctx, video.ID, models.Video{
		Title:      title,
		StorageKey: key,
		Duration:   lm.Duration,
		FileSize:   lm.Size,
		Width:      lm.Width,
		Height:     lm.Height,
		FPS:        lm.FPS,
		Container:  lm.Format,
	}); err != nil {
		return models.NewError(models.ErrInternal, err, "record media for video %s", video.ID)
	}
	return o.repo.SetVideoStatus(ctx, video.ID, models.StatusCompleted, nil)
}

func (o *Orchestrator) runTranscribe(ctx context.Context, job *models.Job) error {
	video, err := o.repo.GetVideo(ctx, *job.VideoID)
	if err != nil {
		return models.NewError(models.ErrInternal, err, "load video %s", job.VideoID)
	}
	if video.StorageKey == "" {
		return models.NewError(models.ErrAssetMissing, nil, "video %s has no stored media", video.ID)
	}

	local, err := o.pullToTemp(ctx, video.StorageKey)
	if err != nil {
		return err
	}
	defer os.Remove(local)

	lang := metadataString(job.Metadata, "language", "")
	transcript, err := o.transcriber.Transcribe(ctx, local, lang, func(pct int) {
		o.report(ctx, job, pct, nil)
	})
	if err != nil {
		return err
	}
	transcript.VideoID = video.ID

	if err := o.repo.CreateTranscript(ctx, transcript); err != nil {
		return models.NewError(models.ErrInternal, err, "store transcript for video %s", video.ID)
	}
	return nil
}

func (o *Orchestrator) runDetect(ctx context.Context, job *models.Job) error {
	video, err := o.repo.GetVideo(ctx, *job.VideoID)
	if err != nil {
		return models.NewError(models.ErrInternal, err, "load video %s", job.VideoID)
	}
	transcript, err := o.repo.LatestTranscript(ctx, video.ID)
	if err != nil {
		return models.NewError(models.ErrAssetMissing, err, "no transcript for video %s", video.ID)
	}
	o.report(ctx, job, 10, nil)

	var scenes []float64
	if video.StorageKey != "" {
		if local, err := o.pullToTemp(ctx, video.StorageKey); err == nil {
			scenes = media.DetectScenes(ctx, local, 0.4)
			os.Remove(local)
		}
	}
	o.report(ctx, job, 60, nil)

	hc := o.cfg.Highlights
	highlights := highlight.DetectHighlights(transcript, video.Duration, highlight.Options{
		MinClipSec:      hc.MinClipSec,
		MaxClipSec:      hc.MaxClipSec,
		MaxHighlights:   hc.MaxHighlights,
		HardCap:         hc.HardCap,
		OverlapFraction: hc.OverlapFraction,
		SceneChanges:    scenes,
	})
	for i := range highlights {
		highlights[i].VideoID = video.ID
	}

	if err := o.repo.ReplaceHighlights(ctx, video.ID, highlights); err != nil {
		return models.NewError(models.ErrInternal, err, "store highlights for video %s", video.ID)
	}
	return nil
}

func (o *Orchestrator) runExport(ctx context.Context, job *models.Job) error {
	clipID, ok := metadataUUID(job.Metadata, "clip_id")
	if !ok {
		return models.NewError(models.ErrInternal, nil, "export job %s has no clip_id", job.ID)
	}
	clip, err := o.repo.GetClip(ctx, clipID)
	if err != nil {
		return models.NewError(models.ErrInternal, err, "load clip %s", clipID)
	}
	hl, err := o.repo.GetHighlight(ctx, clip.HighlightID)
	if err != nil {
		return models.NewError(models.ErrAssetMissing, err, "highlight %s no longer exists", clip.HighlightID)
	}
	video, err := o.repo.GetVideo(ctx, clip.VideoID)
	if err != nil {
		return models.NewError(models.ErrInternal, err, "load video %s", clip.VideoID)
	}
	if video.StorageKey == "" {
		return models.NewError(models.ErrAssetMissing, nil, "video %s has no stored media", video.ID)
	}

	if err := o.repo.SetClipStatus(ctx, clip.ID, models.StatusRunning); err != nil {
		return models.NewError(models.ErrInternal, err, "mark clip %s running", clip.ID)
	}

	local, err := o.pullToTemp(ctx, video.StorageKey)
	if err != nil {
		return err
	}
	defer os.Remove(local)
	o.report(ctx, job, 10, nil)

	info, err := media.Probe(ctx, local)
	if err != nil {
		return models.NewError(models.ErrSourceTrimFailed, err, "probe source for clip %s", clip.ID)
	}

	style, withSubs := decodeStyle(clip.SubtitleStyle)
	var segments []models.Segment
	if withSubs {
		if transcript, err := o.repo.LatestTranscript(ctx, video.ID); err == nil {
			segments = transcript.Segments
		} else {
			withSubs = false
		}
	}

	outPath := filepath.Join(o.cfg.Storage.TempDir, fmt.Sprintf("clip-%s.mp4", clip.ID))
	result, err := o.renderer.Render(ctx, render.Request{
		SourcePath:         local,
		SourceInfo:         *info,
		Start:              hl.StartTime,
		End:                hl.EndTime,
		Format:             clip.ExportFormat,
		Resolution:         clip.Resolution,
		Watermark:          clip.HasWatermark,
		WithSubtitles:      withSubs,
		Style:              style,
		TranscriptSegments: segments,
		OutputPath:         outPath,
	}, func(pct int) { o.report(ctx, job, 10+pct*85/100, nil) })
	if err != nil {
		return err
	}
	defer os.Remove(result.Path)

	key := fmt.Sprintf("clips/%s/%s.mp4", clip.UserID, clip.ID)
	if _, err := o.store.PutFile(ctx, key, result.Path, "video/mp4"); err != nil {
		return models.NewError(models.ErrInternal, err, "store clip %s", clip.ID)
	}

	if err := o.repo.CompleteClip(ctx, clip.ID, key, result.Size, result.Duration, result.Warnings); err != nil {
		return models.NewError(models.ErrInternal, err, "complete clip %s", clip.ID)
	}
	return nil
}

// pullToTemp copies a blob to worker-local scratch space.
func (o *Orchestrator) pullToTemp(ctx context.Context, key string) (string, error) {
	path := filepath.Join(o.cfg.Storage.TempDir, fmt.Sprintf("src-%s%s", uuid.NewString(), filepath.Ext(key)))
	if err := o.store.GetFile(ctx, key, path); err != nil {
		os.Remove(path)
		return "", models.NewError(models.ErrSourceUnavailable, err, "fetch %s from storage", key)
	}
	return path, nil
}

// decodeStyle turns the clip's stored subtitle options back into a style.
// A missing or empty style map means the clip renders without subtitles.
func decodeStyle(m models.JSONMap) (models.SubtitleStyle, bool) {
	if len(m) == 0 {
		return models.SubtitleStyle{}, false
	}
	style := render.DefaultSubtitleStyle()
	raw, err := json.Marshal(m)
	if err != nil {
		return style, true
	}
	json.Unmarshal(raw, &style)
	return style, true
}
