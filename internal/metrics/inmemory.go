package metrics

import (
	"sync/atomic"
	"time"
)

// Login outcome labels.
const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	PostsCreated           uint64
	PostsUpdated           uint64
	PostsDeleted           uint64
	OwnershipDenied        uint64
	PostCacheHits          uint64
	PostCacheMisses        uint64
	UsersRegistered        uint64
	LoginsSucceeded        uint64
	LoginsFailed           uint64
	RateLimited            uint64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	postsCreated           atomic.Uint64
	postsUpdated           atomic.Uint64
	postsDeleted           atomic.Uint64
	ownershipDenied        atomic.Uint64
	postCacheHits          atomic.Uint64
	postCacheMisses        atomic.Uint64
	usersRegistered        atomic.Uint64
	loginsSucceeded        atomic.Uint64
	loginsFailed           atomic.Uint64
	rateLimited            atomic.Uint64
	requestDurationCount   atomic.Uint64
	requestDurationTotalNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		PostsCreated:           m.postsCreated.Load(),
		PostsUpdated:           m.postsUpdated.Load(),
		PostsDeleted:           m.postsDeleted.Load(),
		OwnershipDenied:        m.ownershipDenied.Load(),
		PostCacheHits:          m.postCacheHits.Load(),
		PostCacheMisses:        m.postCacheMisses.Load(),
		UsersRegistered:        m.usersRegistered.Load(),
		LoginsSucceeded:        m.loginsSucceeded.Load(),
		LoginsFailed:           m.loginsFailed.Load(),
		RateLimited:            m.rateLimited.Load(),
		RequestDurationCount:   m.requestDurationCount.Load(),
		RequestDurationTotalNs: m.requestDurationTotalNs.Load(),
	}
}

// IncPostCreated increments the post created counter.
func (m *InMemoryRecorder) IncPostCreated() {
	m.postsCreated.Add(1)
}

// IncPostUpdated increments the post updated counter.
func (m *InMemoryRecorder) IncPostUpdated() {
	m.postsUpdated.Add(1)
}

// IncPostDeleted increments the post deleted counter.
func (m *InMemoryRecorder) IncPostDeleted() {
	m.postsDeleted.Add(1)
}

// IncOwnershipDenied counts mutations refused because the caller is not the author.
func (m *InMemoryRecorder) IncOwnershipDenied() {
	m.ownershipDenied.Add(1)
}

// IncPostCacheHit increments the post cache hit counter.
func (m *InMemoryRecorder) IncPostCacheHit() {
	m.postCacheHits.Add(1)
}

// IncPostCacheMiss increments the post cache miss counter.
func (m *InMemoryRecorder) IncPostCacheMiss() {
	m.postCacheMisses.Add(1)
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	m.usersRegistered.Add(1)
}

// IncLogin counts a login attempt by outcome. Unknown labels count as failed.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncRateLimited counts rejected requests.
func (m *InMemoryRecorder) IncRateLimited() {
	m.rateLimited.Add(1)
}

// ObserveRequestDuration records request duration.
func (m *InMemoryRecorder) ObserveRequestDuration(duration time.Duration) {
	m.requestDurationCount.Add(1)
	m.requestDurationTotalNs.Add(duration.Nanoseconds())
}
