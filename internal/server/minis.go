package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/internal/images"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// withImage fills the image URLs of m when a photo is stored.
func (s *Server) withImage(m *types.MiniDetail) {
	if s.images.Exists(m.ID) {
		m.ImagePath = images.FullURL(m.ID)
		m.ThumbPath = images.ThumbURL(m.ID)
	}
}

func (s *Server) listMinis(c *gin.Context) {
	list, err := s.backend.Minis().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	for i := range list {
		s.withImage(&list[i])
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getMini(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	m, err := s.backend.Minis().Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.withImage(m)
	c.JSON(http.StatusOK, m)
}

func (s *Server) createMini(c *gin.Context) {
	in, ok := bindJSON[types.MiniInput](c)
	if !ok {
		return
	}
	m, err := s.backend.Minis().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) updateMini(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.MiniUpdate](c)
	if !ok {
		return
	}
	m, err := s.backend.Minis().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.withImage(m)
	c.JSON(http.StatusOK, m)
}

// deleteMini removes the record, then its images. A failure to remove the
// files is logged; the record is already gone.
func (s *Server) deleteMini(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.Minis().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.images.Delete(id); err != nil {
		s.logger.Warn("removing images of deleted mini", zap.Int64("id", id), zap.Error(err))
	}
	c.JSON(http.StatusOK, success)
}

type miniTagsRequest struct {
	TagIDs []int64 `json:"tag_ids"`
}

func (s *Server) setMiniTags(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindJSON[miniTagsRequest](c)
	if !ok {
		return
	}
	m, err := s.backend.Minis().SetTags(c.Request.Context(), id, req.TagIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.withImage(m)
	c.JSON(http.StatusOK, m)
}

type miniTypesRequest struct {
	Types []types.MiniTypeLink `json:"types"`
}

func (s *Server) setMiniTypes(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindJSON[miniTypesRequest](c)
	if !ok {
		return
	}
	m, err := s.backend.Minis().SetTypes(c.Request.Context(), id, req.Types)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.withImage(m)
	c.JSON(http.StatusOK, m)
}

// Images

func (s *Server) uploadImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.backend.Minis().Get(ctx, id); err != nil {
		s.fail(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	header, err := c.FormFile("image")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	if err := s.images.Save(id, f); err != nil {
		s.fail(c, err)
		return
	}
	m, err := s.backend.Minis().Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.withImage(m)
	c.JSON(http.StatusOK, m)
}

func (s *Server) deleteImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := s.backend.Minis().Get(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.images.Delete(id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

var (
	shardPattern     = regexp.MustCompile(`^[0-9]{2}$`)
	imageFilePattern = regexp.MustCompile(`^[0-9]+(_thumb)?\.jpg$`)
)

func (s *Server) serveImage(c *gin.Context) {
	shard, file := c.Param("shard"), c.Param("file")
	if !shardPattern.MatchString(shard) || !imageFilePattern.MatchString(file) {
		s.fail(c, types.ErrNotFound)
		return
	}
	path := filepath.Join(s.images.Root(), shard, file)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.fail(c, types.ErrNotFound)
			return
		}
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}
