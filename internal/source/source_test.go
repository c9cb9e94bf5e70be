package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []PhotoItem{{SourceID: "a"}, {SourceID: "b"}, {SourceID: "c"}}

	batch, next, err := Paginate(items, "", 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Equal(t, "2", next)

	batch, next, err = Paginate(items, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []PhotoItem{{SourceID: "c"}}, batch)
	assert.Empty(t, next)

	batch, next, err = Paginate(items, "9", 2)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Empty(t, next)

	_, _, err = Paginate(items, "x", 2)
	assert.Error(t, err)
}

func TestImageFormat(t *testing.T) {
	tests := map[string]string{
		"a.JPG":      "jpeg",
		"a.jpeg":     "jpeg",
		"b.png":      "png",
		"c.gif":      "gif",
		"d.webp":     "webp",
		"notes.txt":  "",
		"no-ext":     "",
		"archive.gz": "",
	}
	for name, want := range tests {
		if got := ImageFormat(name); got != want {
			t.Errorf("ImageFormat(%q) = %q, want %q", name, got, want)
		}
	}
}
