package cfg

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Application configuration
	SitesDir     string `long:"sites-dir" env:"SITES_DIR" default:"./sites" description:"Directory containing site configuration files"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for maintenance tasks"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for operator endpoints (optional)"`
	DatabasePath string `long:"db-path" env:"DB_PATH" default:"./data/news-comb.db" description:"SQLite file for run history"`

	// Schedule
	ScheduleTime     string `long:"schedule-time" env:"SCHEDULE_TIME" default:"06:00" description:"Daily pipeline run time (HH:MM)"`
	ScheduleTimezone string `long:"schedule-timezone" env:"SCHEDULE_TIMEZONE" default:"UTC" description:"Timezone of the daily run time"`
	PauseOnErrorRate bool   `long:"pause-on-error-rate" env:"PAUSE_ON_ERROR_RATE" description:"Skip scheduled runs while the rolling error rate is high"`

	// Pipeline tuning
	MaxURLsPerRun       int     `long:"max-urls" env:"MAX_URLS_PER_RUN" default:"50" description:"Maximum discovered URLs processed per run"`
	DiscoveryPause      int     `long:"discovery-pause" env:"DISCOVERY_PAUSE" default:"1" description:"Pause between listing pages in seconds"`
	ExtractConcurrency  int     `long:"extract-concurrency" env:"EXTRACT_CONCURRENCY" default:"3" description:"Pages rendered concurrently during extraction"`
	ExtractCooldown     int     `long:"extract-cooldown" env:"EXTRACT_COOLDOWN" default:"2" description:"Cooldown between extraction groups in seconds"`
	EnrichBatchSize     int     `long:"enrich-batch-size" env:"ENRICH_BATCH_SIZE" default:"3" description:"Documents per enrichment request"`
	EnrichBatchPause    int     `long:"enrich-batch-pause" env:"ENRICH_BATCH_PAUSE" default:"2" description:"Pause between enrichment batches in seconds"`
	EnrichMaxAttempts   int     `long:"enrich-max-attempts" env:"ENRICH_MAX_ATTEMPTS" default:"3" description:"Attempts per model call on rate limiting"`
	RetentionHours      int     `long:"retention-hours" env:"RETENTION_HOURS" default:"24" description:"Hours a document stays in the store"`
	DuplicateThreshold  float64 `long:"duplicate-threshold" env:"DUPLICATE_THRESHOLD" default:"0.8" description:"Title word overlap treated as duplicate"`
	MaintenanceInterval int     `long:"maintenance-interval" env:"MAINTENANCE_INTERVAL" default:"30" description:"Automatic store maintenance interval in minutes"`
	ErrorRateThreshold  int     `long:"error-rate-threshold" env:"ERROR_RATE_THRESHOLD" default:"50" description:"Errors per hour considered high"`

	// Browser
	BrowserMode string `long:"browser" env:"BROWSER_MODE" default:"chrome" choice:"chrome" choice:"http" description:"Page renderer"`
	ChromePath  string `long:"chrome-path" env:"CHROME_PATH" description:"Chrome executable (defaults to autodetect)"`
	PageTimeout int    `long:"page-timeout" env:"PAGE_TIMEOUT" default:"30" description:"Page load timeout in seconds"`
	RenderWait  int    `long:"render-wait" env:"RENDER_WAIT" default:"2" description:"Wait for dynamic content after load in seconds"`

	// Generative model
	VertexProject string `long:"vertex-project" env:"VERTEX_PROJECT" description:"Google Cloud project for Vertex AI"`
	VertexRegion  string `long:"vertex-region" env:"VERTEX_REGION" default:"us-central1" description:"Vertex AI region"`
	VertexModel   string `long:"vertex-model" env:"VERTEX_MODEL" default:"gemini-1.5-pro" description:"Generative model name"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		SitesDir:            raw.SitesDir,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		WorkerCount:         raw.WorkerCount,
		APIAccessKey:        raw.APIAccessKey,
		DatabasePath:        raw.DatabasePath,
		ScheduleTime:        raw.ScheduleTime,
		ScheduleTimezone:    raw.ScheduleTimezone,
		PauseOnErrorRate:    raw.PauseOnErrorRate,
		MaxURLsPerRun:       raw.MaxURLsPerRun,
		DiscoveryPause:      raw.DiscoveryPause,
		ExtractConcurrency:  raw.ExtractConcurrency,
		ExtractCooldown:     raw.ExtractCooldown,
		EnrichBatchSize:     raw.EnrichBatchSize,
		EnrichBatchPause:    raw.EnrichBatchPause,
		EnrichMaxAttempts:   raw.EnrichMaxAttempts,
		RetentionHours:      raw.RetentionHours,
		DuplicateThreshold:  raw.DuplicateThreshold,
		MaintenanceInterval: raw.MaintenanceInterval,
		ErrorRateThreshold:  raw.ErrorRateThreshold,
		BrowserMode:         raw.BrowserMode,
		ChromePath:          raw.ChromePath,
		PageTimeout:         raw.PageTimeout,
		RenderWait:          raw.RenderWait,
		VertexProject:       raw.VertexProject,
		VertexRegion:        raw.VertexRegion,
		VertexModel:         raw.VertexModel,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// ParseScheduleTime splits an HH:MM string into hour and minute.
func ParseScheduleTime(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule time %q must be HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in schedule time %q", value)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in schedule time %q", value)
	}

	return hour, minute, nil
}

func validate(cfg *Cfg) error {
	if _, _, err := ParseScheduleTime(cfg.ScheduleTime); err != nil {
		return err
	}

	if _, err := time.LoadLocation(cfg.ScheduleTimezone); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", cfg.ScheduleTimezone, err)
	}

	positiveFields := map[string]int{
		"worker count":        cfg.WorkerCount,
		"max urls":            cfg.MaxURLsPerRun,
		"extract concurrency": cfg.ExtractConcurrency,
		"enrich batch size":   cfg.EnrichBatchSize,
		"enrich max attempts": cfg.EnrichMaxAttempts,
		"retention hours":     cfg.RetentionHours,
		"page timeout":        cfg.PageTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.DuplicateThreshold <= 0 || cfg.DuplicateThreshold > 1 {
		return fmt.Errorf("duplicate threshold must be in (0, 1]")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
