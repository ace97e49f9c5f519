package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "minidb_session"

// ctxUsername is the gin context key of the authenticated username.
const ctxUsername = "username"

// requireSession rejects requests without a live session with 401.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(SessionCookie)
		sess, err := s.auth.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, types.ErrInvalidCredentials) && !errors.Is(err, types.ErrSessionExpired) {
				s.logger.Error("verifying session", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
			return
		}
		c.Set(ctxUsername, sess.Username)
		c.Next()
	}
}

func username(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

func (s *Server) setSessionCookie(c *gin.Context, sess *types.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.Token, int(s.auth.TTL().Seconds()), "/", "", s.opts.Production, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.opts.Production, true)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	req, ok := bindJSON[loginRequest](c)
	if !ok {
		return
	}
	sess, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, types.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgBadCredentials})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, sess)
	c.JSON(http.StatusOK, gin.H{"username": sess.Username})
}

func (s *Server) logout(c *gin.Context) {
	token, _ := c.Cookie(SessionCookie)
	if err := s.auth.Logout(c.Request.Context(), token); err != nil {
		s.fail(c, err)
		return
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, success)
}

// status never returns 401; it reports whether the cookie carries a live
// session.
func (s *Server) status(c *gin.Context) {
	token, _ := c.Cookie(SessionCookie)
	sess, err := s.auth.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "username": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "username": sess.Username})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) changePassword(c *gin.Context) {
	req, ok := bindJSON[passwordRequest](c)
	if !ok {
		return
	}
	sess, err := s.auth.ChangePassword(c.Request.Context(), username(c), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, types.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, sess)
	c.JSON(http.StatusOK, success)
}
