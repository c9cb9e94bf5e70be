package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashtagsRoundTrip(t *testing.T) {
	tags := Hashtags{"cat", "pet", "indoor"}

	v, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, "cat,pet,indoor", v)

	var scanned Hashtags
	require.NoError(t, scanned.Scan([]byte("cat,pet,indoor")))
	assert.Equal(t, tags, scanned)
}

func TestHashtagsScanEmpty(t *testing.T) {
	var h Hashtags
	require.NoError(t, h.Scan(""))
	assert.Empty(t, h)

	require.NoError(t, h.Scan(nil))
	assert.NotNil(t, h)
	assert.Empty(t, h)

	assert.Error(t, h.Scan(42))
}

func TestPhotoHasImage(t *testing.T) {
	assert.False(t, (&Photo{}).HasImage())
	assert.False(t, (&Photo{FileURL: "  "}).HasImage())
	assert.True(t, (&Photo{FileURL: "https://cdn.example/p.jpg"}).HasImage())
}
