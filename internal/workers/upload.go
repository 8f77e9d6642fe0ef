package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streampulse/job-service/internal/httpclient"
	"github.com/streampulse/job-service/internal/jobqueue"
	"github.com/streampulse/job-service/internal/storage"
)

// UploadPayload describes an upload job: content is either inlined
// base64 or fetched from a source URL.
type UploadPayload struct {
	AccountID     string `json:"account_id"`
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	ContentBase64 string `json:"content_base64,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
}

// UploadResult is stored as the job result on success
type UploadResult struct {
	StorageKey string `json:"storage_key"`
	Checksum   string `json:"checksum"`
	Size       int64  `json:"size"`
}

// NewUploadHandler processes upload jobs: it materializes the artifact
// and persists it to storage under a date-partitioned key.
func NewUploadHandler(store storage.Storage, client *httpclient.Client) HandlerFunc {
	return func(ctx context.Context, job *jobqueue.Job) (json.RawMessage, error) {
		var payload UploadPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid upload payload: %w", err)
		}
		if payload.AccountID == "" || payload.FileName == "" {
			return nil, fmt.Errorf("upload payload requires account_id and file_name")
		}

		var content []byte
		switch {
		case payload.ContentBase64 != "":
			decoded, err := base64.StdEncoding.DecodeString(payload.ContentBase64)
			if err != nil {
				return nil, fmt.Errorf("invalid base64 content: %w", err)
			}
			content = decoded
		case payload.SourceURL != "":
			fetched, err := client.GetBytes(ctx, payload.SourceURL)
			if err != nil {
				return nil, fmt.Errorf("fetch upload source: %w", err)
			}
			content = fetched
		default:
			return nil, fmt.Errorf("upload payload requires content_base64 or source_url")
		}

		key := storage.BuildUploadKey(payload.AccountID, time.Now().UTC(), payload.FileName)
		meta := &storage.Metadata{
			ContentType:  payload.ContentType,
			OriginalName: payload.FileName,
			AccountID:    payload.AccountID,
			JobID:        job.ID,
			SourceURL:    payload.SourceURL,
			UploadedAt:   time.Now().UTC(),
		}
		if err := store.Put(ctx, key, content, meta); err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}

		result := UploadResult{
			StorageKey: key,
			Checksum:   storage.ComputeChecksum(content),
			Size:       int64(len(content)),
		}
		return json.Marshal(result)
	}
}
