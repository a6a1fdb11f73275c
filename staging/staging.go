// Package staging gives every worker a private download directory and
// merges them into one publish directory once a slice has finished.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/autotrack/domain"
)

const (
	imagesDir  = "images"
	publishDir = "publish"
)

// Area is the staging root of one slice: <root>/<worker>/ plus <root>/publish/
type Area struct {
	root string
}

// NewArea creates the area root
func NewArea(root string) (*Area, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging area: %w", err)
	}
	return &Area{root: root}, nil
}

// Root returns the area directory
func (a *Area) Root() string { return a.root }

// PublishDir returns where merged files end up
func (a *Area) PublishDir() string { return filepath.Join(a.root, publishDir) }

// Worker returns the private directory of one worker
func (a *Area) Worker(name string) (*Dir, error) {
	name = safeName(name)
	if name == "" || name == publishDir {
		return nil, fmt.Errorf("invalid worker directory name %q", name)
	}
	d := &Dir{path: filepath.Join(a.root, name)}
	if err := os.MkdirAll(filepath.Join(d.path, imagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create worker directory: %w", err)
	}
	return d, nil
}

// Merge moves the files of items into the publish directory and returns the
// items with their new titles and paths. Items are processed in (account,
// title) order so the resulting names do not depend on worker timing.
// Items whose media file is missing are dropped.
func (a *Area) Merge(items []domain.GeneratedItem) ([]domain.GeneratedItem, error) {
	pub := &Dir{path: a.PublishDir()}
	if err := os.MkdirAll(filepath.Join(pub.path, imagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory: %w", err)
	}

	sorted := append([]domain.GeneratedItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Account != sorted[j].Account {
			return sorted[i].Account < sorted[j].Account
		}
		if sorted[i].Title != sorted[j].Title {
			return sorted[i].Title < sorted[j].Title
		}
		return sorted[i].MediaPath < sorted[j].MediaPath
	})

	merged := make([]domain.GeneratedItem, 0, len(sorted))
	for _, item := range sorted {
		if _, err := os.Stat(item.MediaPath); err != nil {
			continue
		}

		ext := filepath.Ext(item.MediaPath)
		name := pub.UniqueName(item.Title, ext)
		dst := filepath.Join(pub.path, name)
		if err := moveFile(item.MediaPath, dst); err != nil {
			return nil, err
		}

		out := item
		out.Title = strings.TrimSuffix(name, ext)
		out.MediaPath = dst

		if item.ImagePath != "" {
			imgDst := filepath.Join(pub.path, imagesDir, out.Title+filepath.Ext(item.ImagePath))
			if err := moveFile(item.ImagePath, imgDst); err != nil {
				out.ImagePath = ""
			} else {
				out.ImagePath = imgDst
			}
		}
		merged = append(merged, out)
	}
	return merged, nil
}

// MediaFiles lists the files staged for upload, sorted
func (a *Area) MediaFiles() ([]string, error) {
	entries, err := os.ReadDir(a.PublishDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list publish directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(a.PublishDir(), e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Cleanup removes everything staged in the area
func (a *Area) Cleanup() error {
	if err := os.RemoveAll(a.root); err != nil {
		return fmt.Errorf("failed to clean staging area: %w", err)
	}
	return nil
}

// Dir is a single directory that hands out collision-free file names
type Dir struct {
	path string
}

func (d *Dir) Path() string      { return d.path }
func (d *Dir) ImagesDir() string { return filepath.Join(d.path, imagesDir) }

// UniqueName returns a file name for title that does not exist yet in d
func (d *Dir) UniqueName(title, ext string) string {
	return NextFreeName(func(name string) bool {
		_, err := os.Stat(filepath.Join(d.path, name))
		return err == nil
	}, title, ext)
}

// NextFreeName returns "title.ext" or the first free "title - Nth version.ext" (N >= 2)
func NextFreeName(exists func(name string) bool, title, ext string) string {
	title = safeName(title)
	if title == "" {
		title = "untitled"
	}

	name := title + ext
	for n := 2; exists(name); n++ {
		name = fmt.Sprintf("%s - %s version%s", title, humanize.Ordinal(n), ext)
	}
	return name
}

var unsafeChars = strings.NewReplacer(
	"/", "-", `\`, "-", ":", "-", "*", "", "?", "", `"`, "", "<", "", ">", "", "|", "",
)

func safeName(s string) string {
	s = strings.TrimSpace(unsafeChars.Replace(s))
	return strings.Trim(s, ".")
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// rename fails across devices; fall back to copy
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return os.Remove(src)
}
