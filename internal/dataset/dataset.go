// Package dataset manages the labeled image folders training reads from.
// Every sub-directory of the data directory is a class; its images are the
// samples of that class.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
}

// ErrInvalidName is returned when a class or file name sanitizes to nothing.
var ErrInvalidName = errors.New("invalid name")

// Provider reports what training data is available.
type Provider interface {
	// Classes returns image counts per class, omitting empty classes.
	Classes(ctx context.Context) (map[string]int, error)
	TotalImages(ctx context.Context) (int, error)
}

// Info summarizes a dataset.
type Info struct {
	Classes     map[string]int `json:"classes"`
	TotalImages int            `json:"total_images"`
	NumClasses  int            `json:"num_classes"`
}

// DirProvider reads classes from a directory tree.
type DirProvider struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

func NewDirProvider(dir string, logger *slog.Logger) *DirProvider {
	return &DirProvider{dir: dir, logger: logger}
}

func (p *DirProvider) Dir() string {
	return p.dir
}

func (p *DirProvider) Classes(ctx context.Context) (map[string]int, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	classes := make(map[string]int)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		n, err := countImages(filepath.Join(p.dir, entry.Name()))
		if err != nil {
			p.logger.Warn("failed to count images", "class", entry.Name(), "error", err)
			continue
		}
		if n > 0 {
			classes[entry.Name()] = n
		}
	}
	return classes, nil
}

func (p *DirProvider) TotalImages(ctx context.Context) (int, error) {
	classes, err := p.Classes(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range classes {
		total += n
	}
	return total, nil
}

// Info returns class counts and totals.
func (p *DirProvider) Info(ctx context.Context) (Info, error) {
	classes, err := p.Classes(ctx)
	if err != nil {
		return Info{}, err
	}
	info := Info{Classes: classes, NumClasses: len(classes)}
	for _, n := range classes {
		info.TotalImages += n
	}
	return info, nil
}

// CreateClasses makes one folder per sanitized name and returns the names
// actually created, in input order. Names that sanitize to nothing are skipped.
func (p *DirProvider) CreateClasses(names []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	created := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, raw := range names {
		name := SanitizeName(raw)
		if name == "" || seen[name] {
			continue
		}
		if err := os.MkdirAll(filepath.Join(p.dir, name), 0755); err != nil {
			return created, fmt.Errorf("failed to create class %s: %w", name, err)
		}
		seen[name] = true
		created = append(created, name)
	}

	p.logger.Info("created class folders", "count", len(created))
	return created, nil
}

// SaveImage stores one uploaded image under class. The class folder is
// created when missing.
func (p *DirProvider) SaveImage(class, filename string, r io.Reader) (string, error) {
	class = SanitizeName(class)
	filename = SanitizeName(filename)
	if class == "" || filename == "" {
		return "", ErrInvalidName
	}
	if !IsImage(filename) {
		return "", fmt.Errorf("unsupported image type: %s", filepath.Ext(filename))
	}

	dir := filepath.Join(p.dir, class)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create class %s: %w", class, err)
	}

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// ClassNames returns the non-empty classes sorted by name.
func (p *DirProvider) ClassNames(ctx context.Context) ([]string, error) {
	classes, err := p.Classes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func countImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			n++
		}
	}
	return n, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeName reduces a user-supplied name to a safe single path element.
func SanitizeName(name string) string {
	name = filepath.Base(filepath.ToSlash(strings.ReplaceAll(name, `\`, "/")))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}
