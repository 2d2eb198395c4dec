package handlers

import (
	"net/http"
	"strconv"

	"claimtrace/internal/engine"
	"claimtrace/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventsHandler handles HTTP requests for posts, canonical events and the
// account leaderboard
type EventsHandler struct {
	db       *gorm.DB
	pipeline *engine.Pipeline
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(db *gorm.DB, pipeline *engine.Pipeline) *EventsHandler {
	return &EventsHandler{
		db:       db,
		pipeline: pipeline,
	}
}

// ProcessPost handles POST /api/posts
func (h *EventsHandler) ProcessPost(c *gin.Context) {
	var incoming engine.IncomingPost
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid post payload",
			"details": err.Error(),
		})
		return
	}

	result, err := h.pipeline.ProcessPost(c.Request.Context(), incoming)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process post",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcome":        result.Outcome,
		"post":           result.Post,
		"event":          result.Event,
		"classification": result.Classification,
		"repost":         result.Repost,
	})
}

// ListEvents handles GET /api/events
func (h *EventsHandler) ListEvents(c *gin.Context) {
	limit, offset := pagination(c)

	query := h.db.Model(&models.CanonicalEvent{})
	if status := c.Query("status"); status != "" {
		query = query.Where("verification_status = ?", status)
	}

	var total int64
	query.Count(&total)

	var events []models.CanonicalEvent
	if err := query.Order("first_timestamp_utc DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetEvent handles GET /api/events/:id and returns the event with its full
// repost timeline in arrival order
func (h *EventsHandler) GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.CanonicalEvent
	if err := h.db.Preload("Reposts", func(db *gorm.DB) *gorm.DB {
		return db.Order("time_delta_seconds ASC")
	}).Where("id = ?", eventID).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var firstPost models.Post
	h.db.Where("id = ?", event.FirstPostID).First(&firstPost)

	c.JSON(http.StatusOK, gin.H{
		"event":      event,
		"first_post": firstPost,
	})
}

// GetLeaderboard handles GET /api/accounts/leaderboard, ranking accounts by
// reliability score
func (h *EventsHandler) GetLeaderboard(c *gin.Context) {
	limit, offset := pagination(c)

	var accounts []models.AccountMetrics
	query := h.db.Model(&models.AccountMetrics{})
	if tier := c.Query("tier"); tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if err := query.Order("reliability_score DESC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve leaderboard",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAccount handles GET /api/accounts/:account
func (h *EventsHandler) GetAccount(c *gin.Context) {
	account := c.Param("account")

	var metrics models.AccountMetrics
	if err := h.db.Where("account = ?", account).First(&metrics).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	var interactions []models.AccountInteraction
	h.db.Where("source_account = ? OR target_account = ?", account, account).
		Order("frequency DESC").
		Limit(50).
		Find(&interactions)

	c.JSON(http.StatusOK, gin.H{
		"metrics":      metrics,
		"interactions": interactions,
	})
}

// HealthCheck handles GET /health
func (h *EventsHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pagination parses limit/page query parameters with sane bounds
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
