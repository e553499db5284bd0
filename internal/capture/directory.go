package capture

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Directory replays still images and PDF pages as frames, in file name order.
// A file that cannot be decoded yields ErrNoFrame for its turn; once every
// file has been read Next returns ErrExhausted.
type Directory struct {
	basePath string
	files    []string
	next     int

	pending []image.Image
	origin  string
	page    int
	seq     uint64
}

// NewDirectory creates a Directory source from a directory or a single file
func NewDirectory(path string) (*Directory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame source: %w", err)
	}

	if !info.IsDir() {
		return &Directory{
			basePath: filepath.Dir(path),
			files:    []string{filepath.Base(path)},
		}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("listing frame directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsStill(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return &Directory{
		basePath: path,
		files:    files,
	}, nil
}

// Len returns the number of files the source will read
func (d *Directory) Len() int {
	return len(d.files)
}

// Next returns the next page or image
func (d *Directory) Next() (Frame, error) {
	if len(d.pending) == 0 {
		if d.next >= len(d.files) {
			return Frame{}, ErrExhausted
		}
		name := d.files[d.next]
		d.next++

		images, err := d.load(name)
		if err != nil {
			slog.Warn("Skipping unreadable frame file", "file", name, "error", err)
			return Frame{}, ErrNoFrame
		}
		if len(images) == 0 {
			return Frame{}, ErrNoFrame
		}
		d.pending = images
		d.origin = name
		d.page = 0
	}

	img := d.pending[0]
	d.pending = d.pending[1:]
	d.page++
	d.seq++

	origin := d.origin
	if d.page > 1 || len(d.pending) > 0 {
		origin = fmt.Sprintf("%s#%d", d.origin, d.page)
	}

	return Frame{
		Seq:      d.seq,
		Image:    img,
		Origin:   origin,
		Captured: time.Now(),
	}, nil
}

func (d *Directory) load(name string) ([]image.Image, error) {
	data, err := os.ReadFile(filepath.Join(d.basePath, name))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return decodeFile(name, data)
}

// Close drops any frames not yet returned
func (d *Directory) Close() error {
	d.pending = nil
	d.next = len(d.files)
	return nil
}
