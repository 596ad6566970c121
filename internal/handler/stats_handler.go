package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/response"
)

type StatsHandler struct {
	users   service.UserService
	tracker service.TrackerService
}

func NewStatsHandler(users service.UserService, tracker service.TrackerService) *StatsHandler {
	return &StatsHandler{users: users, tracker: tracker}
}

func (h *StatsHandler) Summary(c *gin.Context) {
	count, err := h.users.CountUsers(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": count})
}

func (h *StatsHandler) Locations(c *gin.Context) {
	limit := 0
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	locations, err := h.tracker.Locations(c.Request.Context(), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations})
}
