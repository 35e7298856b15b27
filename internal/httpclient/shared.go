package httpclient

import (
	"sync"

	"github.com/jobsentinel/jobsentinel/internal/common"
)

var (
	sharedOnce   sync.Once
	sharedClient *Client
)

// Shared returns the process-wide Client, built once from cfg on first
// call. Every source adapter and the notifier call this rather than
// constructing their own client, so they all observe the same per-host
// rate limiter.
func Shared(cfg common.HTTPClientConfig) *Client {
	sharedOnce.Do(func() {
		sharedClient = New(cfg)
	})
	return sharedClient
}
