package workers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// SignatureHeader carries the HMAC-SHA256 signature of the delivered body
const SignatureHeader = "X-Streampulse-Signature"

// WebhookPayload describes a webhook delivery job
type WebhookPayload struct {
	URL    string          `json:"url"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Secret string          `json:"secret,omitempty"`
}

// WebhookResult is stored as the job result on success
type WebhookResult struct {
	StatusCode  int       `json:"status_code"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// SignPayload computes the hex HMAC-SHA256 signature for a webhook body
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// NewWebhookHandler delivers webhook events. Transient HTTP failures are
// retried inside the client per its backoff policy; an exhausted delivery
// surfaces as a job failure and re-enters the queue's own retry path.
func NewWebhookHandler(client *httpclient.Client) HandlerFunc {
	return func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		var payload WebhookPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid webhook payload: %w", err)
		}
		if payload.URL == "" {
			return nil, fmt.Errorf("webhook payload requires url")
		}

		body, err := json.Marshal(map[string]interface{}{
			"event": payload.Event,
			"data":  payload.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal webhook body: %w", err)
		}

		headers := map[string]string{}
		if payload.Secret != "" {
			headers[SignatureHeader] = SignPayload(payload.Secret, body)
		}

		resp, err := client.Post(ctx, payload.URL, body, headers)
		if err != nil {
			return nil, fmt.Errorf("deliver webhook: %w", err)
		}
		resp.Body.Close()

		result := WebhookResult{
			StatusCode:  resp.StatusCode,
			DeliveredAt: time.Now().UTC(),
		}
		return json.Marshal(result)
	}
}
