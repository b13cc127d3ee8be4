package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }
func (p fakePinger) Endpoint() string { return "https://commons.example.org/w/api.php" }

func TestCheckUpstream(t *testing.T) {
	report := CheckUpstream(context.Background(), fakePinger{})
	assert.True(t, report.Reachable)
	assert.Equal(t, "https://commons.example.org/w/api.php", report.Endpoint)
	assert.Empty(t, report.Error)
	assert.GreaterOrEqual(t, report.LatencyMS, int64(0))

	report = CheckUpstream(context.Background(), fakePinger{err: errors.New("HTTP 503")})
	assert.False(t, report.Reachable)
	assert.Equal(t, "HTTP 503", report.Error)
}
