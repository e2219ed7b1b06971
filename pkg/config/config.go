package config

import "time"

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	AppDebug bool   `mapstructure:"APP_DEBUG"`

	// TransferCacheMode selects the concurrency discipline of the per-class
	// caches: "locked" or "lockfree".
	TransferCacheMode string `mapstructure:"TRANSFER_CACHE_MODE"`
	// NumSizeClasses caps how many entries of the size class table are used.
	// Zero means the whole default table.
	NumSizeClasses int `mapstructure:"NUM_SIZE_CLASSES"`
	// SpanSizeInBatches is how many batches worth of objects a central free
	// list allocates per refill.
	SpanSizeInBatches int `mapstructure:"SPAN_SIZE_IN_BATCHES"`

	// StressEnabled runs the randomized multithreaded harness inside the
	// service, reporting through the regular metrics surface.
	StressEnabled bool `mapstructure:"STRESS_ENABLED"`
	// StressWorkers is the number of concurrent harness workers.
	StressWorkers int `mapstructure:"STRESS_WORKERS"`
	// StressRateLimit caps harness operations per second per worker pool.
	// Zero disables pacing.
	StressRateLimit int `mapstructure:"STRESS_RATE_LIMIT"`
	// StressReportInterval is how often the harness logs progress.
	StressReportInterval time.Duration `mapstructure:"STRESS_REPORT_INTERVAL"`
}

func (c *Config) IsDebugOn() bool {
	return c.AppDebug
}
