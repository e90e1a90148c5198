package partial

import (
	"go.uber.org/zap"

	"github.com/wippyai/shape-runtime/region"
)

// Options configures a builder.
type Options struct {
	// Region is where the built value lives. Borrowed inputs must outlive it.
	// Nil means region.Static.
	Region *region.Region
	// Logger overrides the package logger.
	Logger *zap.Logger
	// MaxDepth bounds the frame stack, root included.
	MaxDepth int
}

// DefaultOptions returns default builder configuration.
func DefaultOptions() Options {
	return Options{
		MaxDepth: 256,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}

func (o Options) region() *region.Region {
	if o.Region != nil {
		return o.Region
	}
	return region.Static()
}
