package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sharide/internal/api/middleware"
	"sharide/internal/services"
)

// RatingHandler exposes the rating ledger.
type RatingHandler struct {
	ratingService *services.RatingService
}

func NewRatingHandler(ratingService *services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// RecordRatingRequest is the body of POST /ratings. Score is a pointer so
// that an explicit 0 passes the required check.
type RecordRatingRequest struct {
	RateeID     string   `json:"ratee_id" binding:"required"`
	Score       *float64 `json:"score" binding:"required"`
	Description string   `json:"description"`
}

// RecordRating handles POST /ratings. The caller is the rater.
func (h *RatingHandler) RecordRating(c *gin.Context) {
	var req RecordRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raterID := middleware.GetUserID(c)
	result, err := h.ratingService.RecordRating(c.Request.Context(), raterID, req.RateeID, *req.Score, req.Description)
	if errors.Is(err, services.ErrTransactionNotRecorded) {
		// the aggregate did change, so report it with the failure
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     err.Error(),
			"aggregate": result.Aggregate,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetAverage handles GET /ratings/:user_id/average.
func (h *RatingHandler) GetAverage(c *gin.Context) {
	userID := c.Param("user_id")
	average, count, err := h.ratingService.GetAverageRating(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"average": average,
		"count":   count,
	})
}

// GetHistory handles GET /ratings/:user_id/history (ratings the user gave).
func (h *RatingHandler) GetHistory(c *gin.Context) {
	userID := c.Param("user_id")
	txs, err := h.ratingService.GetRatingHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "transactions": txs})
}

// GetReceived handles GET /ratings/:user_id/received.
func (h *RatingHandler) GetReceived(c *gin.Context) {
	userID := c.Param("user_id")
	txs, err := h.ratingService.GetRatingsReceived(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "transactions": txs})
}
