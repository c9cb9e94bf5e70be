// Package source reads photos for bulk import from local collections.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PhotoItem is one importable photo file with its activity metadata.
type PhotoItem struct {
	SourceID     string // unique within the source
	LocalPath    string
	FileName     string
	Format       string // jpeg, png, gif, webp
	ActivityName string
	ActivityDate string
	Location     string
	GroupName    string
	Owner        string
}

// Source defines the interface for photo import sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// FetchBatch fetches a batch of items starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of photo items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []PhotoItem, nextCursor string, err error)
}

// Paginate slices items by an index cursor as returned from FetchBatch.
func Paginate(items []PhotoItem, cursor string, limit int) ([]PhotoItem, string, error) {
	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(items) {
		return []PhotoItem{}, "", nil
	}
	if limit <= 0 {
		limit = len(items)
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next, nil
}

// ImageFormat maps a file extension to a supported image format, or "".
func ImageFormat(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	switch strings.ToLower(name[i:]) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}
