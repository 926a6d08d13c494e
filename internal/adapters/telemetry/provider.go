// Package telemetry provides progress reporting adapters.
package telemetry

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"

	"github.com/kilnbuild/kiln/internal/core/ports"
)

var _ ports.Tracer = (*ProgrockTracer)(nil)

// ProgrockTracer implements ports.Tracer using the progrock vertex model:
// every job and step becomes a vertex on the tape.
type ProgrockTracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a ProgrockTracer with a default tape.
func New() *ProgrockTracer {
	return NewTracer(progrock.NewTape())
}

// NewTracer creates a ProgrockTracer recording to the given writer.
func NewTracer(w progrock.Writer) *ProgrockTracer {
	return &ProgrockTracer{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start creates a new vertex-backed span.
func (t *ProgrockTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	d := digest.FromString(name)
	v := t.rec.Vertex(d, name)
	if cfg.Cached {
		v.Cached()
	}
	return ctx, &progrockSpan{vertex: v}
}

// EmitPlan records the planned jobs as a message on the tape.
func (t *ProgrockTracer) EmitPlan(_ context.Context, jobNames []string) {
	t.rec.Debug(fmt.Sprintf("planned %d job(s)", len(jobNames)), progrock.Labelf("jobs", "%v", jobNames))
}

// Close flushes and closes the recording session.
func (t *ProgrockTracer) Close() error {
	return t.rec.Close()
}

// progrockSpan implements ports.Span wrapping *progrock.VertexRecorder.
type progrockSpan struct {
	vertex *progrock.VertexRecorder
	err    error
}

// Write streams output onto the vertex's stdout stream.
func (s *progrockSpan) Write(p []byte) (n int, err error) {
	return s.vertex.Stdout().Write(p)
}

// End completes the vertex, with the recorded error if any.
func (s *progrockSpan) End() {
	s.vertex.Done(s.err)
}

// RecordError records an error for the vertex.
func (s *progrockSpan) RecordError(err error) {
	s.err = err
}

// SetAttribute renders the attribute on the vertex output stream.
func (s *progrockSpan) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}
