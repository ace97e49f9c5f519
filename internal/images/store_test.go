package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestShard(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{7, "07"},
		{10, "10"},
		{42, "42"},
		{123, "12"},
		{98765, "98"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Shard(tt.id), "id %d", tt.id)
	}
	assert.Equal(t, "/api/images/12/123.jpg", FullURL(123))
	assert.Equal(t, "/api/images/07/7_thumb.jpg", ThumbURL(7))
}

func TestSaveWritesBothVariants(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save(123, bytes.NewReader(pngBytes(t, 3200, 800))))

	assert.Equal(t, filepath.Join(s.Root(), "12", "123.jpg"), s.FullPath(123))
	assert.True(t, s.Exists(123))

	tests := []struct {
		path  string
		wantW int
		wantH int
	}{
		{s.FullPath(123), 1600, 400},
		{s.ThumbPath(123), 300, 75},
	}
	for _, tt := range tests {
		f, err := os.Open(tt.path)
		require.NoError(t, err)
		cfg, err := jpeg.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.wantW, cfg.Width, tt.path)
		assert.Equal(t, tt.wantH, cfg.Height, tt.path)
	}
}

func TestSaveKeepsSmallImages(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save(5, bytes.NewReader(pngBytes(t, 120, 200))))

	f, err := os.Open(s.FullPath(5))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestSaveRejectsGarbage(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Save(1, strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, types.ErrInvalidImage)
	assert.False(t, s.Exists(1))
}

func TestDelete(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Save(77, bytes.NewReader(pngBytes(t, 10, 10))))

	require.NoError(t, s.Delete(77))
	assert.False(t, s.Exists(77))
	_, err := os.Stat(s.ThumbPath(77))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(77), "deleting a missing image is fine")
}

func TestFitPortrait(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 500, 1000))
	out := Fit(img, 300)
	assert.Equal(t, 150, out.Bounds().Dx())
	assert.Equal(t, 300, out.Bounds().Dy())
}
