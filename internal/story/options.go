package story

import (
	"io"
	"log"

	"go.opentelemetry.io/otel/trace"
)

const defaultPathCacheSize = 256

type options struct {
	logger                         *log.Logger
	pathCacheSize                  int
	seed                           *int
	tracer                         trace.Tracer
	stepLimit                      int
	allowExternalFunctionFallbacks bool
}

func defaultOptions() options {
	return options{
		logger:        log.New(io.Discard, "", 0),
		pathCacheSize: defaultPathCacheSize,
	}
}

// Option configures a Story.
type Option func(*options)

// WithLogger sets the logger that receives runtime errors and warnings as
// they are recorded.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPathCacheSize bounds the number of resolved paths kept in memory.
func WithPathCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pathCacheSize = size
		}
	}
}

// WithSeed fixes the random seed, making RANDOM and shuffles repeatable.
func WithSeed(seed int) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithTracer sets the tracer used for story spans. The global tracer
// provider is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithStepLimit caps the number of steps a single Continue may take. Zero
// means no limit.
func WithStepLimit(limit int) Option {
	return func(o *options) {
		if limit >= 0 {
			o.stepLimit = limit
		}
	}
}

// WithExternalFunctionFallbacks lets unbound external functions run the
// story function of the same name instead of failing.
func WithExternalFunctionFallbacks(allow bool) Option {
	return func(o *options) {
		o.allowExternalFunctionFallbacks = allow
	}
}
