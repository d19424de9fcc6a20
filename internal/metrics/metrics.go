// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Post lifecycle metrics
	IncPostCreated()
	IncPostUpdated()
	IncPostDeleted()
	IncOwnershipDenied()
	IncPostCacheHit()
	IncPostCacheMiss()

	// Credential metrics
	IncUserRegistered()
	IncLogin(status string) // status: "success" or "failed"

	// Request metrics
	IncRateLimited()
	ObserveRequestDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
