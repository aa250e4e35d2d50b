package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from YAML with
// environment overrides for deployment secrets.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		DSN              string `yaml:"dsn"`
		CloudSQLInstance string `yaml:"cloudsql_instance"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		TempDir   string `yaml:"temp_dir"`
	} `yaml:"storage"`

	Events struct {
		AMQPURL string `yaml:"amqp_url"`
		Queue   string `yaml:"queue"`
	} `yaml:"events"`

	Transcriber struct {
		Engine       string `yaml:"engine"` // "openai" or "mock"
		APIKey       string `yaml:"api_key"`
		BaseURL      string `yaml:"base_url"`
		Model        string `yaml:"model"`
		ChunkSeconds int    `yaml:"chunk_seconds"`
	} `yaml:"transcriber"`

	Highlights struct {
		MinClipSec      float64 `yaml:"min_clip_sec"`
		MaxClipSec      float64 `yaml:"max_clip_sec"`
		MaxHighlights   int     `yaml:"max_highlights"`
		HardCap         int     `yaml:"hard_cap"`
		OverlapFraction float64 `yaml:"overlap_fraction"`
	} `yaml:"highlights"`

	Render struct {
		WatermarkText string  `yaml:"watermark_text"`
		BrandAssetDir string  `yaml:"brand_asset_dir"`
		PaddingSec    float64 `yaml:"padding_sec"`
	} `yaml:"render"`

	Worker struct {
		Concurrency    int `yaml:"concurrency"`
		HeavySlots     int `yaml:"heavy_slots"`
		LeaseSeconds   int `yaml:"lease_seconds"`
		ReservedLowPct int `yaml:"reserved_low_pct"`
	} `yaml:"worker"`

	Tiers map[string]TierPolicy `yaml:"tiers"`
}

// TierPolicy is the externally supplied quota policy per subscription tier.
// Exact numbers are deployment policy, not a code contract.
type TierPolicy struct {
	MaxFileSizeMB  int64  `yaml:"max_file_size_mb"`
	MaxResolution  string `yaml:"max_resolution"`
	DailyClipLimit int    `yaml:"daily_clip_limit"`
	Priority       int    `yaml:"priority"`
	Watermark      bool   `yaml:"watermark"`
}

// Load reads the YAML config at path and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Database.DSN = GetEnv("DATABASE_DSN", cfg.Database.DSN)
	cfg.Database.CloudSQLInstance = GetEnv("CLOUDSQL_INSTANCE", cfg.Database.CloudSQLInstance)
	cfg.Redis.Addr = GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Storage.Endpoint = GetEnv("S3_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = GetEnv("S3_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = GetEnv("S3_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = GetEnv("S3_BUCKET", cfg.Storage.Bucket)
	cfg.Events.AMQPURL = GetEnv("RABBITMQ_URL", cfg.Events.AMQPURL)
	cfg.Transcriber.APIKey = GetEnv("OPENAI_API_KEY", cfg.Transcriber.APIKey)
	cfg.Transcriber.BaseURL = GetEnv("OPENAI_BASE_URL", cfg.Transcriber.BaseURL)

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Redis.Addr = "localhost:6379"
	cfg.Storage.TempDir = os.TempDir()
	cfg.Events.Queue = "stage_events"
	cfg.Transcriber.Engine = "openai"
	cfg.Transcriber.Model = "whisper-1"
	cfg.Transcriber.ChunkSeconds = 600
	cfg.Highlights.MinClipSec = 15
	cfg.Highlights.MaxClipSec = 60
	cfg.Highlights.MaxHighlights = 5
	cfg.Highlights.HardCap = 10
	cfg.Render.WatermarkText = "ViralClips.ai"
	cfg.Render.PaddingSec = 1
	cfg.Worker.Concurrency = 4
	cfg.Worker.HeavySlots = 2
	cfg.Worker.LeaseSeconds = 300
	cfg.Worker.ReservedLowPct = 25
	cfg.Tiers = map[string]TierPolicy{
		"free":    {MaxFileSizeMB: 100, MaxResolution: "720p", DailyClipLimit: 3, Priority: 0, Watermark: true},
		"premium": {MaxFileSizeMB: 1024, MaxResolution: "1080p", DailyClipLimit: 20, Priority: 10},
	}
	return cfg
}

// Policy resolves the tier policy for a subscription label, falling back to
// the free tier for unknown labels.
func (c *Config) Policy(tier string) TierPolicy {
	if p, ok := c.Tiers[tier]; ok {
		return p
	}
	return c.Tiers["free"]
}

// LeaseTTL returns the queue lease duration.
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.Worker.LeaseSeconds) * time.Second
}

// GetEnv returns the environment value for key or fallback when unset.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
