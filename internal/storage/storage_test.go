package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKey(t *testing.T) {
	now := time.UnixMilli(1717000000000)
	key := BuildKey(PrefixRepairVideos, `C:\clips\after repair (1).mp4`, now)

	assert.True(t, strings.HasPrefix(key, "repair-videos/1717000000000_"), key)
	assert.True(t, strings.HasSuffix(key, "_after_repair_1_.mp4"), key)
	assert.NotContains(t, key, " ")

	assert.True(t, strings.HasSuffix(BuildKey(PrefixAttachments, "...", now), "_upload"))
}

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://files.test/files/", 1024)
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "before-videos/a.mp4", strings.NewReader("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/files/before-videos/a.mp4", obj.URL)
	assert.Equal(t, int64(11), obj.Size)

	data, err := os.ReadFile(filepath.Join(dir, "before-videos", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), "before-videos/a.mp4"))
	require.NoError(t, store.Delete(context.Background(), "before-videos/a.mp4"))
}

func TestLocalStore_RejectsOversize(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://files.test", 4)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "attachments/big.bin", strings.NewReader("12345"), "application/octet-stream")
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(filepath.Join(dir, "attachments", "big.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://files.test", 0)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}
