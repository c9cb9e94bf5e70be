package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/config"
)

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.want {
			t.Errorf("detectStorageType(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", normalizeEndpoint("http://minio:9000/some/path"))
	assert.Equal(t, "abc.r2.cloudflarestorage.com", normalizeEndpoint("https://abc.r2.cloudflarestorage.com"))
}

func TestPhotoKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "photos/2024/03/p1.jpg", PhotoKey("/photos/", "p1", "JPG", at))
	assert.Equal(t, "2024/03/p1.webp", PhotoKey("", "p1", ".webp", at))
	assert.Equal(t, "photos/2024/03/p1", PhotoKey("photos", "p1", "", at))
}

func TestNewStorageDisabled(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewStorage(&config.StorageConfig{Enabled: true})
	assert.Error(t, err)
}

func TestS3StorageGetURL(t *testing.T) {
	s, err := NewS3Storage(&S3Config{
		Type:      StorageTypeS3Compatible,
		Endpoint:  "http://minio:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "gallery",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/gallery/photos/p1.jpg", s.GetURL("photos/p1.jpg"))

	cdn, err := NewS3Storage(&S3Config{
		Type:      StorageTypeR2,
		Endpoint:  "https://abc.r2.cloudflarestorage.com",
		AccessKey: "a",
		SecretKey: "b",
		UseSSL:    true,
		Bucket:    "gallery",
		PublicURL: "https://cdn.example/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/photos/p1.jpg", cdn.GetURL("/photos/p1.jpg"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("head bucket: %w", &types.NotFound{})))
	assert.False(t, isNotFound(errors.New("access denied")))
}
