package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/response"
)

type RatingHandler struct {
	ratings service.RatingService
}

func NewRatingHandler(ratings service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

type rateRequest struct {
	Rating   int     `json:"rating" binding:"required,min=1,max=5"`
	Comments *string `json:"comments,omitempty"`
}

func (h *RatingHandler) Rate(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.ratings.Rate(c.Request.Context(), userID, c.Param("slug"), req.Rating, req.Comments)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rating)
}
