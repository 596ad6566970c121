package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/response"
)

type TaxonomyHandler struct {
	tags service.TagService
}

func NewTaxonomyHandler(tags service.TagService) *TaxonomyHandler {
	return &TaxonomyHandler{tags: tags}
}

func (h *TaxonomyHandler) ListCategories(c *gin.Context) {
	topOnly := c.Query("top_level") == "true"
	categories, err := h.tags.ListCategories(c.Request.Context(), topOnly)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (h *TaxonomyHandler) TagsByCategory(c *gin.Context) {
	tags, err := h.tags.TagsByCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

func (h *TaxonomyHandler) GetTag(c *gin.Context) {
	tag, children, err := h.tags.GetTag(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "children": children})
}

type createCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	TopLevel bool   `json:"top_level"`
	OrderBy  int    `json:"order_by"`
}

func (h *TaxonomyHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.tags.CreateCategory(c.Request.Context(), req.Name, req.TopLevel, req.OrderBy)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

type createTagRequest struct {
	Name         string  `json:"name" binding:"required"`
	CategorySlug string  `json:"category_slug" binding:"required"`
	ParentSlug   string  `json:"parent_slug"`
	Description  *string `json:"description,omitempty"`
	Summary      *string `json:"summary,omitempty"`
	ExternalURL  *string `json:"external_url,omitempty"`
	OrderBy      int     `json:"order_by"`
}

func (h *TaxonomyHandler) CreateTag(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tags.CreateTag(c.Request.Context(), service.CreateTagInput{
		Name:         req.Name,
		CategorySlug: req.CategorySlug,
		ParentSlug:   req.ParentSlug,
		Description:  req.Description,
		Summary:      req.Summary,
		ExternalURL:  req.ExternalURL,
		OrderBy:      req.OrderBy,
		Creator:      userID,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}
