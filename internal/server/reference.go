package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

func (s *Server) listBaseSizes(c *gin.Context) {
	list, err := s.backend.BaseSizes().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createBaseSize(c *gin.Context) {
	in, ok := bindJSON[types.BaseSize](c)
	if !ok {
		return
	}
	bs, err := s.backend.BaseSizes().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bs)
}

func (s *Server) updateBaseSize(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.BaseSize](c)
	if !ok {
		return
	}
	bs, err := s.backend.BaseSizes().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bs)
}

func (s *Server) deleteBaseSize(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.BaseSizes().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

func (s *Server) listPaintedBy(c *gin.Context) {
	list, err := s.backend.PaintedBy().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createPaintedBy(c *gin.Context) {
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	pb, err := s.backend.PaintedBy().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pb)
}

func (s *Server) updatePaintedBy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	pb, err := s.backend.PaintedBy().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pb)
}

func (s *Server) deletePaintedBy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.PaintedBy().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

// Settings

func (s *Server) getSettings(c *gin.Context) {
	prefs, err := s.backend.Preferences().List(c.Request.Context(), username(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) putSetting(c *gin.Context) {
	req, ok := bindJSON[settingRequest](c)
	if !ok {
		return
	}
	pref, err := s.backend.Preferences().Set(c.Request.Context(), username(c), c.Param("key"), req.Value)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}
