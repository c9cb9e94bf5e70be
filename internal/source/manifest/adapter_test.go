package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterFetchBatch(t *testing.T) {
	base := t.TempDir()
	images := filepath.Join(base, ImagesDir)
	require.NoError(t, os.MkdirAll(images, 0o755))
	for _, name := range []string{"a.jpg", "b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(images, name), []byte("x"), 0o644))
	}

	lines := []string{
		`{"id":"1","filename":"a.jpg","activity_name":"運動會","activity_date":"2024-05-01","owner":"amy"}`,
		`not json`,
		`{"id":"2","filename":"missing.jpg"}`,
		`{"id":"3","filename":"readme.txt"}`,
		``,
		`{"filename":"b.png","group_name":"三年二班","location":"操場"}`,
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, ManifestFileName), []byte(strings.Join(lines, "\n")), 0o644))

	a := NewAdapter(base)
	first, next, err := a.FetchBatch(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "1", first[0].SourceID)
	assert.Equal(t, "運動會", first[0].ActivityName)
	assert.Equal(t, "amy", first[0].Owner)
	assert.Equal(t, "1", next)

	rest, next, err := a.FetchBatch(context.Background(), next, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b.png", rest[0].SourceID)
	assert.Equal(t, "三年二班", rest[0].GroupName)
	assert.Equal(t, "操場", rest[0].Location)
	assert.Empty(t, next)
}

func TestAdapterMissingManifest(t *testing.T) {
	_, _, err := NewAdapter(t.TempDir()).FetchBatch(context.Background(), "", 10)
	assert.Error(t, err)
}
