package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestPutAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	content := []byte("video chunk data")
	err := store.Put(ctx, "uploads/acct-1/2026-03-01/clip.mp4", content, nil)
	require.NoError(t, err)

	got, err := store.Get(ctx, "uploads/acct-1/2026-03-01/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.Get(context.Background(), "uploads/none/missing.mp4")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestPutWithMetadata(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	meta := &Metadata{
		ContentType:  "video/mp4",
		OriginalName: "clip.mp4",
		AccountID:    "acct-1",
		JobID:        "job-9",
		UploadedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Put(ctx, "uploads/acct-1/2026-03-01/clip.mp4", []byte("data"), meta))

	info, err := store.GetInfo(ctx, "uploads/acct-1/2026-03-01/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "video/mp4", info.ContentType)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "acct-1", info.Metadata.AccountID)
	assert.Equal(t, "job-9", info.Metadata.JobID)
}

func TestExistsAndDelete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	key := "results/acct-1/job-9/report.json"
	require.NoError(t, store.Put(ctx, key, []byte("{}"), nil))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListByPrefix(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "uploads/acct-1/2026-03-01/a.mp4", []byte("a"), nil))
	require.NoError(t, store.Put(ctx, "uploads/acct-1/2026-03-01/b.mp4", []byte("b"), nil))
	require.NoError(t, store.Put(ctx, "uploads/acct-2/2026-03-01/c.mp4", []byte("c"), nil))

	keys, err := store.List(ctx, "uploads/acct-1/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, key := range keys {
		assert.Contains(t, key, "uploads/acct-1/")
	}
}

func TestChecksum(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	content := []byte("checksummed content")
	require.NoError(t, store.Put(ctx, "uploads/a/f.bin", content, nil))

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := store.GetChecksum(ctx, "uploads/a/f.bin")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, ComputeChecksum(content))
}

func TestBuildKeys(t *testing.T) {
	date := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "uploads/acct-1/2026-03-01/clip.mp4", BuildUploadKey("acct-1", date, "clip.mp4"))
	assert.Equal(t, "results/acct-1/job-9/report.json", BuildResultKey("acct-1", "job-9", "report.json"))
}
