// Package manifest imports photos listed in a JSON Lines manifest next to an
// images directory.
package manifest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/source"
)

const (
	// ManifestFileName is the JSONL manifest file name.
	ManifestFileName = "manifest.jsonl"
	// ImagesDir is the directory holding the listed files.
	ImagesDir = "images"
)

// Entry is one line of manifest.jsonl.
type Entry struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	ActivityName string `json:"activity_name"`
	ActivityDate string `json:"activity_date"`
	Location     string `json:"location"`
	GroupName    string `json:"group_name"`
	Owner        string `json:"owner"`
}

// Adapter implements source.Source for a manifest directory.
type Adapter struct {
	basePath string
	items    []source.PhotoItem
	loaded   bool
}

// NewAdapter creates a manifest adapter rooted at basePath.
func NewAdapter(basePath string) *Adapter {
	return &Adapter{basePath: basePath}
}

func (a *Adapter) GetSourceID() string {
	return "manifest:" + filepath.Base(a.basePath)
}

func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.PhotoItem, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load manifest: %w", err)
		}
		a.loaded = true
	}
	return source.Paginate(a.items, cursor, limit)
}

// loadItems keeps manifest order. Malformed lines, unsupported files and
// missing images are skipped.
func (a *Adapter) loadItems() error {
	manifestPath := filepath.Join(a.basePath, ManifestFileName)
	imagesPath := filepath.Join(a.basePath, ImagesDir)

	file, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	a.items = []source.PhotoItem{}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil || entry.Filename == "" {
			logger.Warn("[Import] Skipping manifest line %d: malformed entry", lineNo)
			continue
		}
		format := source.ImageFormat(entry.Filename)
		if format == "" {
			continue
		}

		localPath := filepath.Join(imagesPath, entry.Filename)
		if _, err := os.Stat(localPath); err != nil {
			logger.Warn("[Import] Skipping %s: %v", entry.Filename, err)
			continue
		}

		id := entry.ID
		if id == "" {
			id = entry.Filename
		}
		a.items = append(a.items, source.PhotoItem{
			SourceID:     id,
			LocalPath:    localPath,
			FileName:     filepath.Base(entry.Filename),
			Format:       format,
			ActivityName: entry.ActivityName,
			ActivityDate: entry.ActivityDate,
			Location:     entry.Location,
			GroupName:    entry.GroupName,
			Owner:        entry.Owner,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}
	return nil
}
