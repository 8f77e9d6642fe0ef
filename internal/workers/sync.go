package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// SyncPayload describes a provider sync job
type SyncPayload struct {
	AccountID string     `json:"account_id"`
	Provider  string     `json:"provider"`
	FeedURL   string     `json:"feed_url"`
	Since     *time.Time `json:"since,omitempty"`
}

// SyncResult is stored as the job result on success
type SyncResult struct {
	Provider    string    `json:"provider"`
	ItemCount   int       `json:"item_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewSyncHandler pulls a provider feed and reports how many items it
// returned. Persisting the items is the consumer's concern; the job only
// proves the feed was reachable and parseable.
func NewSyncHandler(client *httpclient.Client) HandlerFunc {
	return func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		var payload SyncPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid sync payload: %w", err)
		}
		if payload.AccountID == "" || payload.FeedURL == "" {
			return nil, fmt.Errorf("sync payload requires account_id and feed_url")
		}

		feedURL := payload.FeedURL
		if payload.Since != nil {
			parsed, err := url.Parse(feedURL)
			if err != nil {
				return nil, fmt.Errorf("invalid feed_url: %w", err)
			}
			q := parsed.Query()
			q.Set("since", payload.Since.UTC().Format(time.RFC3339))
			parsed.RawQuery = q.Encode()
			feedURL = parsed.String()
		}

		body, err := client.GetBytes(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", payload.Provider, err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("sync %s: unexpected feed format: %w", payload.Provider, err)
		}

		result := SyncResult{
			Provider:    payload.Provider,
			ItemCount:   len(items),
			CompletedAt: time.Now().UTC(),
		}
		return json.Marshal(result)
	}
}
