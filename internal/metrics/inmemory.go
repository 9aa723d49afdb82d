package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations       uint64
	LoginsSucceeded     uint64
	LoginsFailed        uint64
	LoginsRateLimited   uint64
	SessionsExpired     uint64
	EntriesCreated      uint64
	EntriesUpdated      uint64
	EntriesDeleted      uint64
	DecryptFailures     uint64
	VaultListCount      uint64
	VaultListTotalNanos int64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics
// endpoint and is used directly in tests.
type InMemoryRecorder struct {
	registrations       uint64
	loginsSucceeded     uint64
	loginsFailed        uint64
	loginsRateLimited   uint64
	sessionsExpired     uint64
	entriesCreated      uint64
	entriesUpdated      uint64
	entriesDeleted      uint64
	decryptFailures     uint64
	vaultListCount      uint64
	vaultListTotalNanos int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		Registrations:       atomic.LoadUint64(&m.registrations),
		LoginsSucceeded:     atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:        atomic.LoadUint64(&m.loginsFailed),
		LoginsRateLimited:   atomic.LoadUint64(&m.loginsRateLimited),
		SessionsExpired:     atomic.LoadUint64(&m.sessionsExpired),
		EntriesCreated:      atomic.LoadUint64(&m.entriesCreated),
		EntriesUpdated:      atomic.LoadUint64(&m.entriesUpdated),
		EntriesDeleted:      atomic.LoadUint64(&m.entriesDeleted),
		DecryptFailures:     atomic.LoadUint64(&m.decryptFailures),
		VaultListCount:      atomic.LoadUint64(&m.vaultListCount),
		VaultListTotalNanos: atomic.LoadInt64(&m.vaultListTotalNanos),
	}
}

// IncRegistration increments the registration counter.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments the counter for the given login outcome.
// Unknown outcomes are ignored.
func (m *InMemoryRecorder) IncLogin(status string) {
	switch status {
	case LoginSuccess:
		atomic.AddUint64(&m.loginsSucceeded, 1)
	case LoginFailed:
		atomic.AddUint64(&m.loginsFailed, 1)
	case LoginRateLimited:
		atomic.AddUint64(&m.loginsRateLimited, 1)
	}
}

// IncSessionExpired increments the idle-timeout counter.
func (m *InMemoryRecorder) IncSessionExpired() {
	atomic.AddUint64(&m.sessionsExpired, 1)
}

// IncEntryCreated increments entry created counter.
func (m *InMemoryRecorder) IncEntryCreated() {
	atomic.AddUint64(&m.entriesCreated, 1)
}

// IncEntryUpdated increments entry updated counter.
func (m *InMemoryRecorder) IncEntryUpdated() {
	atomic.AddUint64(&m.entriesUpdated, 1)
}

// IncEntryDeleted increments entry deleted counter.
func (m *InMemoryRecorder) IncEntryDeleted() {
	atomic.AddUint64(&m.entriesDeleted, 1)
}

// IncDecryptFailure counts stored values that failed to decrypt.
func (m *InMemoryRecorder) IncDecryptFailure() {
	atomic.AddUint64(&m.decryptFailures, 1)
}

// ObserveVaultListDuration records how long a listing took.
func (m *InMemoryRecorder) ObserveVaultListDuration(duration time.Duration) {
	atomic.AddUint64(&m.vaultListCount, 1)
	atomic.AddInt64(&m.vaultListTotalNanos, duration.Nanoseconds())
}
