package scheduler

import (
	"time"

	"github.com/tastelanc/backoffice/internal/config"
)

const (
	JobLeadSweep    = "lead_sweep"
	JobPayrollClose = "payroll_close"
)

// Config controls the run loop and per-job limits.
type Config struct {
	RunInterval      time.Duration
	EnabledJobs      []string
	LeadSweepTimeout time.Duration
	PayrollTimeout   time.Duration
	LockTTL          time.Duration
	SendStatements   bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Hour,
		LeadSweepTimeout: 5 * time.Minute,
		PayrollTimeout:   10 * time.Minute,
		LockTTL:          15 * time.Minute,
		SendStatements:   true,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.RunInterval = cfg.Scheduler.RunInterval
	c.EnabledJobs = cfg.Scheduler.EnabledJobs
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.LeadSweepTimeout <= 0 {
		c.LeadSweepTimeout = defaults.LeadSweepTimeout
	}
	if c.PayrollTimeout <= 0 {
		c.PayrollTimeout = defaults.PayrollTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
