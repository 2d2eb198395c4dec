package handlers

import (
	"net/http"
	"os"

	"claimtrace/internal/auth"
	"claimtrace/internal/models"
	"claimtrace/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminHandler handles the operator endpoints: login, verification verdicts
// and account seeding
type AdminHandler struct {
	db           *gorm.DB
	verification *services.VerificationService
	seed         *services.SeedService
	tokens       *auth.TokenIssuer
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, verification *services.VerificationService, seed *services.SeedService) *AdminHandler {
	return &AdminHandler{
		db:           db,
		verification: verification,
		seed:         seed,
		tokens:       auth.NewTokenIssuer(),
	}
}

// AdminAuth middleware requires a valid operator token
func (h *AdminHandler) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator, err := h.tokens.VerifyToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}
		c.Set("operator", operator)
		c.Next()
	}
}

// getAdminPassword returns the admin password from environment or default
func getAdminPassword() string {
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123" // Default password for development
	}
	return password
}

// Login handles POST /api/admin/login and exchanges the admin password for a
// bearer token
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Operator string `json:"operator"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Operator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Operator and password required"})
		return
	}
	if req.Password != getAdminPassword() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.IssueToken(req.Operator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// VerifyEvent handles POST /api/admin/events/:id/verify
func (h *AdminHandler) VerifyEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status required"})
		return
	}

	if err := h.verification.MarkEvent(eventID, req.Status); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Failed to apply verdict",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id": eventID,
		"status":   req.Status,
		"operator": c.GetString("operator"),
	})
}

// SeedAccounts handles POST /api/admin/seed
func (h *AdminHandler) SeedAccounts(c *gin.Context) {
	inserted, err := h.seed.SeedTrackedAccounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Seeding failed",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}

// GetStats handles GET /api/admin/stats with row counts for the dashboard
func (h *AdminHandler) GetStats(c *gin.Context) {
	var postCount, eventCount, repostCount, accountCount, flaggedCount int64
	h.db.Model(&models.Post{}).Count(&postCount)
	h.db.Model(&models.CanonicalEvent{}).Count(&eventCount)
	h.db.Model(&models.Repost{}).Count(&repostCount)
	h.db.Model(&models.AccountMetrics{}).Count(&accountCount)
	h.db.Model(&models.Post{}).Where("needs_review = ?", true).Count(&flaggedCount)

	c.JSON(http.StatusOK, gin.H{
		"posts":        postCount,
		"events":       eventCount,
		"reposts":      repostCount,
		"accounts":     accountCount,
		"needs_review": flaggedCount,
	})
}
