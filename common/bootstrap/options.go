package bootstrap

import (
	"github.com/kitgore/lyrictype-sub002/common/config"
	"github.com/kitgore/lyrictype-sub002/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStore    bool
	customLogger *logger.Logger
	customConfig *config.Config
}

// WithoutStore skips record store initialization
// Used by services that never touch persisted records
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

func defaultOptions() *options {
	return &options{
		skipStore: false,
	}
}
