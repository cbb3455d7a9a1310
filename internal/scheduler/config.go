package scheduler

import (
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Config struct {
	// Interval between overdue sweeps.
	Interval time.Duration
	// JobTimeout bounds one sweep.
	JobTimeout time.Duration
	// LockTTL is the Redis lease duration when multiple replicas run.
	LockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	return c
}

func ProvideConfig() Config {
	return Config{}.withDefaults()
}
