package common

import (
	"github.com/google/uuid"
)

// NewCorrelationID generates a unique correlation ID used to tie together
// the log lines of a single scheduler cycle or RPC call.
// Format: run_<uuid>
func NewCorrelationID() string {
	return "run_" + uuid.New().String()
}
