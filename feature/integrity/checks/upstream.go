package checks

import (
	"context"
	"time"
)

// Pinger checks that an upstream API answers.
type Pinger interface {
	Ping(ctx context.Context) error
	Endpoint() string
}

// UpstreamReport describes one check of the search API.
type UpstreamReport struct {
	Endpoint  string `json:"endpoint"`
	Reachable bool   `json:"reachable"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// CheckUpstream pings the search API. A failed ping is reported, not
// returned as an error.
func CheckUpstream(ctx context.Context, p Pinger) *UpstreamReport {
	start := time.Now()
	err := p.Ping(ctx)

	report := &UpstreamReport{
		Endpoint:  p.Endpoint(),
		Reachable: err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}
