package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/response"
)

type SearchHandler struct {
	search  service.SearchService
	tracker service.TrackerService
}

func NewSearchHandler(search service.SearchService, tracker service.TrackerService) *SearchHandler {
	return &SearchHandler{search: search, tracker: tracker}
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.MsgSearchQueryRequired})
		return
	}

	page, limit := pagination(c)
	results, err := h.search.Search(query, c.Query("tag"), (page-1)*limit, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	searchType := model.SearchWeb
	if response.IsAPIClient(c) {
		searchType = model.SearchAPI
	}
	h.tracker.RecordSearch(service.SearchEvent{
		Type:      searchType,
		UserID:    response.OptionalUserID(c),
		Query:     query,
		NoResults: int(results.Total),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{"data": results, "page": page, "limit": limit})
}
