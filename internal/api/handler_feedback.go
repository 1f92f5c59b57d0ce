package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/service"
)

type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
	}
}

// PostFeedback handles POST /feedback
func (h *FeedbackHandler) PostFeedback(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		UpdateID  int64 `json:"update_id" binding:"required"`
		IsCorrect *bool `json:"is_correct" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.feedbackService.Record(c.Request.Context(), req.UpdateID, userID, *req.IsCorrect)
	if errors.Is(err, errs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "update not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// HideUpdate handles POST /updates/:id/hide
func (h *FeedbackHandler) HideUpdate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	updateID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update id"})
		return
	}

	err = h.feedbackService.Hide(c.Request.Context(), updateID, userID)
	if errors.Is(err, errs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "update not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hide update"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "hidden"})
}
