package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Companies

func (s *Server) listCompanies(c *gin.Context) {
	list, err := s.backend.Companies().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createCompany(c *gin.Context) {
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	company, err := s.backend.Companies().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) updateCompany(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.NameInput](c)
	if !ok {
		return
	}
	company, err := s.backend.Companies().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (s *Server) deleteCompany(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.Companies().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

func (s *Server) listCompanyLines(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	lines, err := s.backend.ProductLines().ListByCompany(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// Product lines

func (s *Server) listLines(c *gin.Context) {
	list, err := s.backend.ProductLines().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createLine(c *gin.Context) {
	in, ok := bindJSON[types.ProductLine](c)
	if !ok {
		return
	}
	line, err := s.backend.ProductLines().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (s *Server) updateLine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.ProductLineUpdate](c)
	if !ok {
		return
	}
	line, err := s.backend.ProductLines().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (s *Server) deleteLine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.ProductLines().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}

func (s *Server) listLineSets(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sets, err := s.backend.ProductSets().ListByLine(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sets)
}

// Product sets

func (s *Server) listSets(c *gin.Context) {
	list, err := s.backend.ProductSets().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createSet(c *gin.Context) {
	in, ok := bindJSON[types.ProductSet](c)
	if !ok {
		return
	}
	set, err := s.backend.ProductSets().Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) updateSet(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindJSON[types.ProductSetUpdate](c)
	if !ok {
		return
	}
	set, err := s.backend.ProductSets().Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) deleteSet(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.backend.ProductSets().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success)
}
