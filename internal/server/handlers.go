package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/turkalkol/turkalkol-backend/internal/gallery"
	"github.com/turkalkol/turkalkol-backend/internal/leaderboard"
	"github.com/turkalkol/turkalkol-backend/internal/likes"
	"github.com/turkalkol/turkalkol-backend/internal/metrics"
	"go.uber.org/zap"
)

type httpHandler struct {
	leaderboard *leaderboard.Service
	likes       *likes.Service
	gallery     *gallery.Service
	metrics     *metrics.Metrics
	publicDir   string
	logger      *zap.Logger
}

type scoreStatsPayload struct {
	TotalFlips      int `json:"totalFlips"`
	SuccessfulFlips int `json:"successfulFlips"`
	LongestCombo    int `json:"longestCombo"`
	GamesPlayed     int `json:"gamesPlayed"`
}

type scoreSubmissionPayload struct {
	Username string            `json:"username"`
	Score    int               `json:"score"`
	Game     string            `json:"game"`
	Stats    scoreStatsPayload `json:"stats"`
}

type scoreResponsePayload struct {
	Success         bool   `json:"success"`
	Username        string `json:"username"`
	Score           int    `json:"score"`
	TotalFlips      int    `json:"total_flips"`
	SuccessfulFlips int    `json:"successful_flips"`
	LongestCombo    int    `json:"longest_combo"`
	GamesPlayed     int    `json:"games_played"`
}

func (h *httpHandler) handleTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleLeaderboardList(c *gin.Context) {
	entries := h.leaderboard.List(c.Request.Context(), c.Query("game"))
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleLeaderboardSubmit(c *gin.Context) {
	var payload scoreSubmissionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.leaderboard.Submit(c.Request.Context(), leaderboard.Submission{
		Username:        payload.Username,
		Score:           payload.Score,
		Game:            payload.Game,
		TotalFlips:      payload.Stats.TotalFlips,
		SuccessfulFlips: payload.Stats.SuccessfulFlips,
		LongestCombo:    payload.Stats.LongestCombo,
		GamesPlayed:     payload.Stats.GamesPlayed,
	})
	switch {
	case errors.Is(err, leaderboard.ErrUsernameLength):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	case errors.Is(err, leaderboard.ErrScoreNegative):
		c.JSON(http.StatusBadRequest, gin.H{"error": "score cannot be negative"})
		return
	case errors.Is(err, leaderboard.ErrScoreTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "score too large"})
		return
	case err != nil:
		h.logger.Error("score submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.Submissions.Inc()
	}
	c.JSON(http.StatusOK, scoreResponsePayload{
		Success:         true,
		Username:        result.Username,
		Score:           result.Score,
		TotalFlips:      result.TotalFlips,
		SuccessfulFlips: result.SuccessfulFlips,
		LongestCombo:    result.LongestCombo,
		GamesPlayed:     result.GamesPlayed,
	})
}

func (h *httpHandler) handleAdminDeletePlayer(c *gin.Context) {
	err := h.leaderboard.AdminDelete(c.Request.Context(), c.Param("username"))
	switch {
	case errors.Is(err, leaderboard.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
	case err != nil:
		h.logger.Error("admin delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type adminScorePayload struct {
	Score int `json:"score"`
}

func (h *httpHandler) handleAdminSetScore(c *gin.Context) {
	var payload adminScorePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.leaderboard.AdminSetScore(c.Request.Context(), c.Param("username"), payload.Score)
	switch {
	case errors.Is(err, leaderboard.ErrScoreNegative), errors.Is(err, leaderboard.ErrScoreTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid score"})
	case errors.Is(err, leaderboard.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
	case err != nil:
		h.logger.Error("admin score edit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "edit failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *httpHandler) handleAdminReset(c *gin.Context) {
	if err := h.leaderboard.AdminReset(c.Request.Context()); err != nil {
		h.logger.Error("admin reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleGetLikes(c *gin.Context) {
	record := h.likes.Get(c.Request.Context(), c.Param("filename"))
	c.JSON(http.StatusOK, record)
}

type likeTogglePayload struct {
	UserID string `json:"userId"`
}

type likeToggleResponse struct {
	Success  bool   `json:"success"`
	Action   string `json:"action"`
	Count    int    `json:"count"`
	HasLiked bool   `json:"hasLiked"`
}

func (h *httpHandler) handleToggleLike(c *gin.Context) {
	var payload likeTogglePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.likes.Toggle(c.Request.Context(), c.Param("filename"), payload.UserID)
	switch {
	case errors.Is(err, likes.ErrMissingUserID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	case err != nil:
		h.logger.Error("like toggle failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.LikeToggles.Inc()
	}
	c.JSON(http.StatusOK, likeToggleResponse{
		Success:  true,
		Action:   result.Action,
		Count:    result.Count,
		HasLiked: result.HasLiked,
	})
}

func (h *httpHandler) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file selected"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("upload open failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("upload read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	stored, err := h.gallery.Upload(c.Request.Context(), fileHeader.Filename, data)
	switch {
	case errors.Is(err, gallery.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	case errors.Is(err, gallery.ErrDecode):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image decode failed"})
		return
	case err != nil:
		h.logger.Error("upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.Uploads.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file": stored})
}

func (h *httpHandler) handleDelete(c *gin.Context) {
	filename := strings.TrimPrefix(c.Param("filename"), "/")

	err := h.gallery.Delete(c.Request.Context(), filename)
	switch {
	case errors.Is(err, gallery.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case err != nil:
		h.logger.Error("delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
	default:
		if h.metrics != nil {
			h.metrics.Deletions.Inc()
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *httpHandler) handleListPhotos(c *gin.Context) {
	names, err := h.gallery.List(c.Request.Context())
	if err != nil {
		h.logger.Error("photo list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *httpHandler) handleCountPhotos(c *gin.Context) {
	count, err := h.gallery.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("photo count failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *httpHandler) handleAdminPage(c *gin.Context) {
	c.File(filepath.Join(h.publicDir, "admin.html"))
}
