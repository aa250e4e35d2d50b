package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

type JobType string

const (
	JobIngest     JobType = "ingest"
	JobTranscribe JobType = "transcribe"
	JobDetect     JobType = "detect_highlights"
	JobExport     JobType = "export_clip"
)

type VideoSource string

const (
	SourceUpload VideoSource = "upload"
	SourceRemote VideoSource = "remote"
)

type ExportFormat string

const (
	FormatVertical   ExportFormat = "9:16"
	FormatSquare     ExportFormat = "1:1"
	FormatHorizontal ExportFormat = "16:9"
)

type SubtitleAnimation string

const (
	AnimationNone       SubtitleAnimation = "none"
	AnimationFade       SubtitleAnimation = "fade"
	AnimationBounce     SubtitleAnimation = "bounce"
	AnimationSlide      SubtitleAnimation = "slide"
	AnimationPulse      SubtitleAnimation = "pulse"
	AnimationTypewriter SubtitleAnimation = "typewriter"
)

type Video struct {
	ID           uuid.UUID   `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	UserID       string      `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;index"`
	Title        string      `json:"title" gorm:"column:title;type:varchar(500);not null"`
	Source       VideoSource `json:"source" gorm:"column:source;type:varchar(32);not null"`
	SourceURL    string      `json:"source_url,omitempty" gorm:"column:source_url;type:text"`
	StorageKey   string      `json:"storage_key" gorm:"column:storage_key;type:text"`
	Duration     float64     `json:"duration" gorm:"column:duration;type:double precision"`
	FileSize     int64       `json:"file_size" gorm:"column:file_size;type:bigint"`
	Width        int         `json:"width" gorm:"column:width"`
	Height       int         `json:"height" gorm:"column:height"`
	FPS          float64     `json:"fps" gorm:"column:fps;type:double precision"`
	Container    string      `json:"container" gorm:"column:container;type:varchar(32)"`
	Status       JobStatus   `json:"status" gorm:"column:status;type:varchar(32);not null"`
	ErrorMessage *string     `json:"error_message,omitempty" gorm:"column:error_message;type:text"`
	CreatedAt    time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	// LocalPath is worker-local scratch state, never persisted.
	LocalPath string `json:"-" gorm:"-"`
}

type Transcript struct {
	ID        uuid.UUID   `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	VideoID   uuid.UUID   `json:"video_id" gorm:"column:video_id;type:uuid;not null;index"`
	Text      string      `json:"text" gorm:"column:text;type:text;not null"`
	Segments  SegmentList `json:"segments" gorm:"column:segments;type:jsonb;not null"`
	Language  string      `json:"language" gorm:"column:language;type:varchar(16)"`
	CreatedAt time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

type Highlight struct {
	ID          uuid.UUID  `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	VideoID     uuid.UUID  `json:"video_id" gorm:"column:video_id;type:uuid;not null;index"`
	StartTime   float64    `json:"start_time" gorm:"column:start_time;type:double precision;not null"`
	EndTime     float64    `json:"end_time" gorm:"column:end_time;type:double precision;not null"`
	Score       float64    `json:"score" gorm:"column:score;type:double precision;not null"`
	Keywords    StringList `json:"keywords" gorm:"column:keywords;type:jsonb"`
	Title       string     `json:"title" gorm:"column:title;type:varchar(255)"`
	Description string     `json:"description,omitempty" gorm:"column:description;type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// Duration returns the highlight length in seconds.
func (h Highlight) Duration() float64 {
	return h.EndTime - h.StartTime
}

// Overlaps reports whether two highlight intervals intersect.
func (h Highlight) Overlaps(other Highlight) bool {
	return h.StartTime < other.EndTime && h.EndTime > other.StartTime
}

type SubtitleStyle struct {
	Font       string            `json:"font"`
	Size       int               `json:"size"`
	Color      string            `json:"color"`
	Background string            `json:"background"`
	Position   string            `json:"position"` // "bottom", "center", "top"
	Animation  SubtitleAnimation `json:"animation"`
}

type Clip struct {
	ID            uuid.UUID    `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	VideoID       uuid.UUID    `json:"video_id" gorm:"column:video_id;type:uuid;not null;index"`
	HighlightID   uuid.UUID    `json:"highlight_id" gorm:"column:highlight_id;type:uuid;not null;index"`
	UserID        string       `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;index"`
	Title         string       `json:"title" gorm:"column:title;type:varchar(255)"`
	ExportFormat  ExportFormat `json:"export_format" gorm:"column:export_format;type:varchar(8);not null"`
	Resolution    string       `json:"resolution" gorm:"column:resolution;type:varchar(8);not null"`
	HasWatermark  bool         `json:"has_watermark" gorm:"column:has_watermark;not null"`
	SubtitleStyle JSONMap      `json:"subtitle_style,omitempty" gorm:"column:subtitle_style;type:jsonb"`
	StorageKey    string       `json:"storage_key" gorm:"column:storage_key;type:text"`
	FileSize      int64        `json:"file_size" gorm:"column:file_size;type:bigint"`
	Duration      float64      `json:"duration" gorm:"column:duration;type:double precision"`
	Status        JobStatus    `json:"status" gorm:"column:status;type:varchar(32);not null"`
	Warnings      StringList   `json:"warnings,omitempty" gorm:"column:warnings;type:jsonb"`
	CreatedAt     time.Time    `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

type Job struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	UserID       string     `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;index"`
	Type         JobType    `json:"type" gorm:"column:type;type:varchar(32);not null"`
	Status       JobStatus  `json:"status" gorm:"column:status;type:varchar(32);not null;index"`
	Progress     int        `json:"progress" gorm:"column:progress;not null"`
	ETASeconds   *float64   `json:"eta_seconds,omitempty" gorm:"column:eta_seconds;type:double precision"`
	ErrorKind    string     `json:"error_kind,omitempty" gorm:"column:error_kind;type:varchar(64)"`
	ErrorMessage *string    `json:"error_message,omitempty" gorm:"column:error_message;type:text"`
	Metadata     JSONMap    `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
	RetryCount   int        `json:"retry_count" gorm:"column:retry_count;not null"`
	MaxRetries   int        `json:"max_retries" gorm:"column:max_retries;not null"`
	Priority     int        `json:"priority" gorm:"column:priority;not null"`
	VideoID      *uuid.UUID `json:"video_id,omitempty" gorm:"column:video_id;type:uuid;index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

// Terminal reports whether the job can no longer make progress.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusCancelled ||
		(j.Status == StatusFailed && j.RetryCount >= j.MaxRetries)
}

// StageTask is the queue payload referencing one job.
type StageTask struct {
	JobID   uuid.UUID `json:"job_id"`
	Type    JobType   `json:"type"`
	VideoID uuid.UUID `json:"video_id"`
	UserID  string    `json:"user_id"`
}

// ProcessingProgress mirrors the latest job state published to pollers.
type ProcessingProgress struct {
	JobID     uuid.UUID `json:"job_id"`
	Type      JobType   `json:"type"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Message   *string   `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
