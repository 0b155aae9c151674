package queue

import (
	"context"
	"encoding/json"
)

// Job handles one message type.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Type is the message type the job consumes.
	Type() string

	// Handle processes one payload. A non-nil error makes the message eligible for retry
	// when the queue has a retry limit.
	Handle(ctx context.Context, payload json.RawMessage) error
}
