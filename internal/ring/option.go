package ring

import (
	"ChordSim/internal/logger"

	"go.opentelemetry.io/otel/trace"
)

type Option func(*Ring)

func WithLogger(l logger.Logger) Option {
	return func(r *Ring) {
		r.lgr = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Ring) {
		r.tracer = t
	}
}
