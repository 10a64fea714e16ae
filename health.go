package cubepg

import (
	"context"
	"time"
)

// HealthStatus is the response type for health check endpoints.
type HealthStatus struct {
	Connected     bool  `json:"connected"`
	LatencyMillis int64 `json:"latency_millis"`
	PoolSize      int32 `json:"pool_size"`
}

// poolStater is satisfied by *Pool. HealthCheck upgrades to it when
// available so the report carries live pool occupancy.
type poolStater interface {
	Stats() PoolStats
}

// HealthCheck probes db with a constant round trip and reports liveness.
// It never returns an error: any failure yields Connected=false and a
// latency of -1.
func HealthCheck(ctx context.Context, db Querier) HealthStatus {
	status := HealthStatus{LatencyMillis: -1}
	if s, ok := db.(poolStater); ok {
		status.PoolSize = s.Stats().Total
	}

	start := time.Now()
	if _, err := QueryOne(ctx, db, "SELECT 1"); err != nil {
		return status
	}

	status.Connected = true
	status.LatencyMillis = time.Since(start).Milliseconds()
	return status
}
