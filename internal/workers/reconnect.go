package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// ReconnectPayload describes a stream reconnect job
type ReconnectPayload struct {
	StreamID  string `json:"stream_id"`
	ProbeURL  string `json:"probe_url"`
	AccountID string `json:"account_id,omitempty"`
}

// ReconnectResult is stored as the job result on success
type ReconnectResult struct {
	StreamID      string    `json:"stream_id"`
	ReconnectedAt time.Time `json:"reconnected_at"`
}

// NewReconnectHandler probes a stream ingest endpoint until it answers.
// The probe client carries the stream_reconnect backoff policy, so a
// flapping endpoint is retried on the same schedule the queue would use.
func NewReconnectHandler(client *httpclient.Client) HandlerFunc {
	return func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		var payload ReconnectPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid reconnect payload: %w", err)
		}
		if payload.StreamID == "" || payload.ProbeURL == "" {
			return nil, fmt.Errorf("reconnect payload requires stream_id and probe_url")
		}

		if _, err := client.GetBytes(ctx, payload.ProbeURL); err != nil {
			return nil, fmt.Errorf("stream %s unreachable: %w", payload.StreamID, err)
		}

		result := ReconnectResult{
			StreamID:      payload.StreamID,
			ReconnectedAt: time.Now().UTC(),
		}
		return json.Marshal(result)
	}
}
