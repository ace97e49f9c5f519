// Package server exposes the MiniatureDB catalog as a JSON REST API over
// gin. Every route except login, logout, status and health requires a
// session cookie.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/miniaturedb/internal/auth"
	"github.com/mesh-intelligence/miniaturedb/internal/images"
	"github.com/mesh-intelligence/miniaturedb/internal/logging"
	"github.com/mesh-intelligence/miniaturedb/internal/sqlite"
)

// HTTP server limits.
const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 60 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 10 * time.Second

	// MaxUploadBytes bounds the multipart body of an image upload.
	MaxUploadBytes = 20 << 20
)

// Options configure the router.
type Options struct {
	// Production sets the Secure flag on the session cookie and runs gin
	// in release mode.
	Production  bool
	CORSOrigins []string
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	backend *sqlite.Backend
	auth    *auth.Service
	images  *images.Store
	logger  *zap.Logger
	opts    Options
	router  *gin.Engine
}

// New builds the server and its routes. The backend must be attached.
func New(backend *sqlite.Backend, authSvc *auth.Service, imageStore *images.Store, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		backend: backend,
		auth:    authSvc,
		images:  imageStore,
		logger:  logger,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}
}

// Run serves srv until ctx is cancelled, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = MaxUploadBytes
	r.Use(logging.Middleware(s.logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic in handler", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	api := r.Group("/api")

	// Public routes
	api.GET("/health", s.health)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", s.login)
		authGroup.POST("/logout", s.logout)
		authGroup.GET("/status", s.status)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(s.requireSession())
	{
		protected.POST("/auth/password", s.changePassword)

		info := protected.Group("/productinfo")
		{
			info.GET("/companies", s.listCompanies)
			info.POST("/companies", s.createCompany)
			info.PUT("/companies/:id", s.updateCompany)
			info.DELETE("/companies/:id", s.deleteCompany)
			info.GET("/companies/:id/lines", s.listCompanyLines)

			info.GET("/lines", s.listLines)
			info.POST("/lines", s.createLine)
			info.PUT("/lines/:id", s.updateLine)
			info.DELETE("/lines/:id", s.deleteLine)
			info.GET("/lines/:id/sets", s.listLineSets)

			info.GET("/sets", s.listSets)
			info.POST("/sets", s.createSet)
			info.PUT("/sets/:id", s.updateSet)
			info.DELETE("/sets/:id", s.deleteSet)
		}

		class := protected.Group("/classification")
		{
			class.GET("/types", s.listTypes)
			class.POST("/types", s.createType)
			class.PUT("/types/:id", s.updateType)
			class.DELETE("/types/:id", s.deleteType)
			class.GET("/types/:id/categories", s.listTypeCategories)
			class.POST("/types/:id/categories/:categoryId", s.linkCategory)
			class.DELETE("/types/:id/categories/:categoryId", s.unlinkCategory)

			class.GET("/categories", s.listCategories)
			class.POST("/categories", s.createCategory)
			class.PUT("/categories/:id", s.updateCategory)
			class.DELETE("/categories/:id", s.deleteCategory)
			class.PUT("/categories/:id/types", s.setCategoryTypes)
		}

		protected.GET("/tags", s.listTags)
		protected.POST("/tags", s.createTag)
		protected.PUT("/tags/:id", s.updateTag)
		protected.DELETE("/tags/:id", s.deleteTag)

		minis := protected.Group("/minis")
		{
			minis.GET("", s.listMinis)
			minis.POST("", s.createMini)
			minis.GET("/:id", s.getMini)
			minis.PUT("/:id", s.updateMini)
			minis.DELETE("/:id", s.deleteMini)
			minis.PUT("/:id/tags", s.setMiniTags)
			minis.PUT("/:id/types", s.setMiniTypes)
			minis.POST("/:id/image", s.uploadImage)
			minis.DELETE("/:id/image", s.deleteImage)
		}
		protected.GET("/images/:shard/:file", s.serveImage)

		ref := protected.Group("/reference")
		{
			ref.GET("/base-sizes", s.listBaseSizes)
			ref.POST("/base-sizes", s.createBaseSize)
			ref.PUT("/base-sizes/:id", s.updateBaseSize)
			ref.DELETE("/base-sizes/:id", s.deleteBaseSize)

			ref.GET("/painted-by", s.listPaintedBy)
			ref.POST("/painted-by", s.createPaintedBy)
			ref.PUT("/painted-by/:id", s.updatePaintedBy)
			ref.DELETE("/painted-by/:id", s.deletePaintedBy)
		}

		protected.GET("/settings", s.getSettings)
		protected.PUT("/settings/:key", s.putSetting)

		protected.GET("/dashboard", s.dashboard)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.backend.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.backend.Dashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
