// Package images stores the photo of each mini as two JPEG variants, a
// display image and a thumbnail, sharded by the leading digits of the id.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Longest edge of each stored variant, in pixels.
const (
	FullMaxEdge  = 1600
	ThumbMaxEdge = 300
)

// JPEGQuality is the encoder quality of both variants.
const JPEGQuality = 85

// URLPrefix is the path under which the server exposes the store.
const URLPrefix = "/api/images"

// Store writes and removes image variants under a root directory.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the directory the store writes into.
func (s *Store) Root() string { return s.root }

// Shard returns the subdirectory name for id: the first two digits of the
// decimal id, zero-padded below 10.
func Shard(id int64) string {
	d := strconv.FormatInt(id, 10)
	if len(d) < 2 {
		return "0" + d
	}
	return d[:2]
}

// FullName and ThumbName are the file names of the two variants.
func FullName(id int64) string  { return strconv.FormatInt(id, 10) + ".jpg" }
func ThumbName(id int64) string { return strconv.FormatInt(id, 10) + "_thumb.jpg" }

// FullPath returns the filesystem path of the display variant of id.
func (s *Store) FullPath(id int64) string {
	return filepath.Join(s.root, Shard(id), FullName(id))
}

// ThumbPath returns the filesystem path of the thumbnail of id.
func (s *Store) ThumbPath(id int64) string {
	return filepath.Join(s.root, Shard(id), ThumbName(id))
}

// FullURL and ThumbURL return the server paths of the two variants.
func FullURL(id int64) string  { return URLPrefix + "/" + Shard(id) + "/" + FullName(id) }
func ThumbURL(id int64) string { return URLPrefix + "/" + Shard(id) + "/" + ThumbName(id) }

// Exists reports whether a display image is stored for id.
func (s *Store) Exists(id int64) bool {
	_, err := os.Stat(s.FullPath(id))
	return err == nil
}

// Save decodes r (JPEG, PNG, GIF or WebP) and writes both variants for id,
// replacing any previous image. Undecodable input returns ErrInvalidImage.
func (s *Store) Save(id int64, r io.Reader) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidImage, err)
	}

	if err := os.MkdirAll(filepath.Join(s.root, Shard(id)), 0o755); err != nil {
		return fmt.Errorf("creating image shard: %w", err)
	}
	if err := writeJPEG(s.FullPath(id), Fit(src, FullMaxEdge)); err != nil {
		return err
	}
	if err := writeJPEG(s.ThumbPath(id), Fit(src, ThumbMaxEdge)); err != nil {
		return err
	}
	return nil
}

// Delete removes both variants of id. Missing files are not an error.
func (s *Store) Delete(id int64) error {
	for _, p := range []string{s.FullPath(id), s.ThumbPath(id)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// Fit scales src down so that its longest edge is at most maxEdge. Images
// already within bounds are returned unchanged.
func Fit(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// writeJPEG encodes img to a temp file and renames it over path.
func writeJPEG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}
