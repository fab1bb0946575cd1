package cfg

import "time"

type Cfg struct {
	// Application configuration
	SitesDir     string
	Port         string
	BaseUrl      string
	WorkerCount  int
	APIAccessKey string
	DatabasePath string

	// Schedule
	ScheduleTime     string
	ScheduleTimezone string
	PauseOnErrorRate bool

	// Pipeline tuning
	MaxURLsPerRun       int
	DiscoveryPause      int
	ExtractConcurrency  int
	ExtractCooldown     int
	EnrichBatchSize     int
	EnrichBatchPause    int
	EnrichMaxAttempts   int
	RetentionHours      int
	DuplicateThreshold  float64
	MaintenanceInterval int
	ErrorRateThreshold  int

	// Browser
	BrowserMode string
	ChromePath  string
	PageTimeout int
	RenderWait  int

	// Generative model
	VertexProject string
	VertexRegion  string
	VertexModel   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetDiscoveryPause() time.Duration {
	return time.Duration(c.DiscoveryPause) * time.Second
}

func (c *Cfg) GetExtractCooldown() time.Duration {
	return time.Duration(c.ExtractCooldown) * time.Second
}

func (c *Cfg) GetEnrichBatchPause() time.Duration {
	return time.Duration(c.EnrichBatchPause) * time.Second
}

func (c *Cfg) GetRetention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c *Cfg) GetMaintenanceInterval() time.Duration {
	return time.Duration(c.MaintenanceInterval) * time.Minute
}

func (c *Cfg) GetPageTimeout() time.Duration {
	return time.Duration(c.PageTimeout) * time.Second
}

func (c *Cfg) GetRenderWait() time.Duration {
	return time.Duration(c.RenderWait) * time.Second
}
