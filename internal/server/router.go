package server

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/turkalkol/turkalkol-backend/internal/gallery"
	"github.com/turkalkol/turkalkol-backend/internal/leaderboard"
	"github.com/turkalkol/turkalkol-backend/internal/likes"
	"github.com/turkalkol/turkalkol-backend/internal/metrics"
	"go.uber.org/zap"
)

var (
	errMissingLeaderboardService = errors.New("leaderboard service dependency required")
	errMissingLikesService       = errors.New("likes service dependency required")
	errMissingGalleryService     = errors.New("gallery service dependency required")
	errMissingAdminCredentials   = errors.New("admin credentials required")
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Leaderboard    *leaderboard.Service
	Likes          *likes.Service
	Gallery        *gallery.Service
	Metrics        *metrics.Metrics
	AdminUsername  string
	AdminPassword  string
	PublicDir      string
	OriginalDir    string
	WatermarkedDir string
	MaxBodyBytes   int64
	Logger         *zap.Logger
}

// NewHTTPHandler builds the full route map around the injected services.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Leaderboard == nil {
		return nil, errMissingLeaderboardService
	}
	if deps.Likes == nil {
		return nil, errMissingLikesService
	}
	if deps.Gallery == nil {
		return nil, errMissingGalleryService
	}
	if deps.AdminUsername == "" || deps.AdminPassword == "" {
		return nil, errMissingAdminCredentials
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogMiddleware(logger))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}
	router.Use(corsMiddleware())
	if deps.MaxBodyBytes > 0 {
		router.Use(bodyLimitMiddleware(deps.MaxBodyBytes))
	}

	handler := &httpHandler{
		leaderboard: deps.Leaderboard,
		likes:       deps.Likes,
		gallery:     deps.Gallery,
		metrics:     deps.Metrics,
		publicDir:   deps.PublicDir,
		logger:      logger,
	}

	router.GET("/test", handler.handleTest)
	router.GET("/api/leaderboard", handler.handleLeaderboardList)
	router.POST("/api/leaderboard", handler.handleLeaderboardSubmit)
	router.GET("/likes/:filename", handler.handleGetLikes)
	router.POST("/like/:filename", handler.handleToggleLike)
	router.GET("/list", handler.handleListPhotos)
	router.GET("/count", handler.handleCountPhotos)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	admin := router.Group("/", basicAuthGuard(deps.AdminUsername, deps.AdminPassword, logger))
	admin.GET("/admin", handler.handleAdminPage)
	admin.POST("/upload", handler.handleUpload)
	admin.POST("/delete/*filename", handler.handleDelete)
	admin.DELETE("/delete/*filename", handler.handleDelete)
	admin.DELETE("/api/admin/leaderboard/:username", handler.handleAdminDeletePlayer)
	admin.PUT("/api/admin/leaderboard/:username", handler.handleAdminSetScore)
	admin.POST("/api/admin/leaderboard/reset", handler.handleAdminReset)

	if deps.OriginalDir != "" {
		router.Static("/images/original", deps.OriginalDir)
	}
	if deps.WatermarkedDir != "" {
		router.Static("/images/watermarked", deps.WatermarkedDir)
		// Short alias the admin panel uses.
		router.Static("/watermarked", deps.WatermarkedDir)
	}

	if deps.PublicDir != "" {
		router.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(deps.PublicDir, "index.html"))
		})
		router.GET("/games/bottleflip", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/games/bottleflip/")
		})
		router.GET("/games/2048", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/games/2048/")
		})
	}

	publicFS := http.Dir(deps.PublicDir)
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if deps.PublicDir == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.FileFromFS(c.Request.URL.Path, publicFS)
	})

	return router, nil
}
