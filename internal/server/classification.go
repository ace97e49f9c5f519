package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Types

func (s *Server) listTypes(c *gin.Context) {
	list, err := s.backend.Types().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createType(c *gin.Context) {
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	t, err := s.backend.Types().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) updateType(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	t, err := s.backend.Types().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteType(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.Types().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

func (s *Server) listTypeCategories(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cats, err := s.backend.Types().Categories(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) linkCategory(c *gin.Context) {
	typeID, ok := idParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := idParam(c, "categoryId")
	if !ok {
		return
	}
	if err := s.backend.Types().LinkCategory(c.Request.Context(), typeID, categoryID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

func (s *Server) unlinkCategory(c *gin.Context) {
	typeID, ok := idParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := idParam(c, "categoryId")
	if !ok {
		return
	}
	if err := s.backend.Types().UnlinkCategory(c.Request.Context(), typeID, categoryID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

// Categories

func (s *Server) listCategories(c *gin.Context) {
	list, err := s.backend.Categories().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createCategory(c *gin.Context) {
	in, ok := bindJSON[types.CategoryInput](c)
	if !ok {
		return
	}
	cat, err := s.backend.Categories().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) updateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	cat, err := s.backend.Categories().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.Categories().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

type categoryTypesRequest struct {
	TypeIDs []int64 `json:"type_ids"`
}

func (s *Server) setCategoryTypes(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindJSON[categoryTypesRequest](c)
	if !ok {
		return
	}
	cat, err := s.backend.Categories().SetTypes(c.Request.Context(), id, req.TypeIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// Tags

func (s *Server) listTags(c *gin.Context) {
	list, err := s.backend.Tags().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createTag(c *gin.Context) {
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	tag, err := s.backend.Tags().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (s *Server) updateTag(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	tag, err := s.backend.Tags().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (s *Server) deleteTag(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.Tags().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}
