// Package album imports photos from a directory tree where every top-level
// folder is one activity, e.g. "2024-05-01 運動會/IMG_0001.jpg".
package album

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/timmy/gallery/internal/source"
)

const SourceID = "album"

// folderDate matches a leading ISO date in an activity folder name.
var folderDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[\s_-]+(.+)$`)

// Adapter walks an album root.
type Adapter struct {
	rootPath string
	owner    string
	items    []source.PhotoItem
	loaded   bool
}

// NewAdapter creates an album adapter. owner is recorded on every photo.
func NewAdapter(rootPath, owner string) *Adapter {
	return &Adapter{rootPath: rootPath, owner: owner}
}

func (a *Adapter) GetSourceID() string {
	return SourceID
}

func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.PhotoItem, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load album: %w", err)
		}
		a.loaded = true
	}
	return source.Paginate(a.items, cursor, limit)
}

func (a *Adapter) loadItems() error {
	if _, err := os.Stat(a.rootPath); err != nil {
		return fmt.Errorf("album path: %w", err)
	}

	a.items = []source.PhotoItem{}
	err := filepath.WalkDir(a.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != a.rootPath {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		format := source.ImageFormat(name)
		if format == "" {
			return nil
		}

		rel, _ := filepath.Rel(a.rootPath, path)
		item := source.PhotoItem{
			SourceID:  filepath.ToSlash(rel),
			LocalPath: path,
			FileName:  name,
			Format:    format,
			Owner:     a.owner,
		}

		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 1 {
			item.ActivityName, item.ActivityDate = parseFolder(parts[0])
		}
		if len(parts) > 2 {
			item.GroupName = parts[1]
		}

		a.items = append(a.items, item)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk album: %w", err)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}

// parseFolder splits "2024-05-01 運動會" into name and date.
func parseFolder(folder string) (name, date string) {
	if m := folderDate.FindStringSubmatch(folder); m != nil {
		return strings.TrimSpace(m[2]), m[1]
	}
	return folder, ""
}
