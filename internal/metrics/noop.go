package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncSessionExpired is a no-op.
func (n *NoopRecorder) IncSessionExpired() {}

// IncEntryCreated is a no-op.
func (n *NoopRecorder) IncEntryCreated() {}

// IncEntryUpdated is a no-op.
func (n *NoopRecorder) IncEntryUpdated() {}

// IncEntryDeleted is a no-op.
func (n *NoopRecorder) IncEntryDeleted() {}

// IncDecryptFailure is a no-op.
func (n *NoopRecorder) IncDecryptFailure() {}

// ObserveVaultListDuration is a no-op.
func (n *NoopRecorder) ObserveVaultListDuration(duration time.Duration) {}
