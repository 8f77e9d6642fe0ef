package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// NotificationPayload describes a notification job. Channel "webhook"
// delivers over HTTP; anything else is written to the structured log for
// downstream shipping.
type NotificationPayload struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

// NotificationResult is stored as the job result on success
type NotificationResult struct {
	Channel      string    `json:"channel"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// NewNotificationHandler dispatches user-facing notifications
func NewNotificationHandler(client *httpclient.Client, logger *zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		var payload NotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid notification payload: %w", err)
		}
		if payload.Recipient == "" || payload.Message == "" {
			return nil, fmt.Errorf("notification payload requires recipient and message")
		}

		switch payload.Channel {
		case "webhook":
			body, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal notification: %w", err)
			}
			resp, err := client.Post(ctx, payload.Recipient, body, nil)
			if err != nil {
				return nil, fmt.Errorf("dispatch notification: %w", err)
			}
			resp.Body.Close()
		default:
			logger.Info().
				Str("channel", payload.Channel).
				Str("recipient", payload.Recipient).
				Str("subject", payload.Subject).
				Str("message", payload.Message).
				Msg("Notification dispatched")
		}

		result := NotificationResult{
			Channel:     payload.Channel,
			DispatchedAt: time.Now().UTC(),
		}
		return json.Marshal(result)
	}
}
