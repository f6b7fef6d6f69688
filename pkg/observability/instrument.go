package observability

import (
	"context"

	"github.com/tci-dev/tcigo/pkg/api"
	"github.com/tci-dev/tcigo/pkg/backend"
)

// InstrumentedBackend decorates a backend with domain metrics: session
// gauge, execution and grading counters, and file transfer counters.
type InstrumentedBackend struct {
	next backend.Backend
}

var _ backend.Backend = (*InstrumentedBackend)(nil)

// Instrument wraps a backend so its operations update the registered
// Prometheus metrics.
func Instrument(next backend.Backend) *InstrumentedBackend {
	return &InstrumentedBackend{next: next}
}

func (b *InstrumentedBackend) CreateSession(ctx context.Context, language string) (*api.Session, error) {
	sess, err := b.next.CreateSession(ctx, language)
	if err == nil {
		SessionsActive.Inc()
	}
	return sess, err
}

func (b *InstrumentedBackend) CloseSession(ctx context.Context, sessionID string) (bool, error) {
	closed, err := b.next.CloseSession(ctx, sessionID)
	if err == nil && closed {
		// Tolerant closes of unknown sessions also land here, so the gauge
		// is a best-effort signal rather than an exact count.
		SessionsActive.Dec()
	}
	return closed, err
}

func (b *InstrumentedBackend) Run(ctx context.Context, sessionID, code string, tests []api.TestSpec) (*api.Execution, error) {
	exec, err := b.next.Run(ctx, sessionID, code, tests)
	if err != nil {
		ExecutionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	ExecutionsTotal.WithLabelValues("ok").Inc()
	for _, res := range exec.Tests {
		if res.Passed {
			TestsGradedTotal.WithLabelValues("passed").Inc()
		} else {
			TestsGradedTotal.WithLabelValues("failed").Inc()
		}
	}
	return exec, nil
}

func (b *InstrumentedBackend) UploadFile(ctx context.Context, sessionID, remotePath string, content []byte) (bool, error) {
	uploaded, err := b.next.UploadFile(ctx, sessionID, remotePath, content)
	if err == nil {
		FilesTransferredTotal.WithLabelValues("upload").Inc()
	}
	return uploaded, err
}

func (b *InstrumentedBackend) DownloadFile(ctx context.Context, sessionID, remotePath string) (*api.File, error) {
	file, err := b.next.DownloadFile(ctx, sessionID, remotePath)
	if err == nil {
		FilesTransferredTotal.WithLabelValues("download").Inc()
	}
	return file, err
}
