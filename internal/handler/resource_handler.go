package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/healthorb/orb-server/pkg/apperror"
	"github.com/healthorb/orb-server/pkg/response"
	"github.com/redis/go-redis/v9"
)

type ResourceHandler struct {
	resources   service.ResourceService
	moderation  service.ModerationService
	tracker     service.TrackerService
	redisClient *redis.Client
	submitLimit time.Duration
}

func NewResourceHandler(resources service.ResourceService, moderation service.ModerationService, tracker service.TrackerService, redisClient *redis.Client, submitLimit time.Duration) *ResourceHandler {
	return &ResourceHandler{
		resources:   resources,
		moderation:  moderation,
		tracker:     tracker,
		redisClient: redisClient,
		submitLimit: submitLimit,
	}
}

// Submit handles the multipart submission form.
func (h *ResourceHandler) Submit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), h.redisClient, userID, "submit_resource", h.submitLimit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if !allowed {
		if ttl, err := service.GetRateLimitTTL(c.Request.Context(), h.redisClient, userID, "submit_resource"); err == nil && ttl > 0 {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
		}
		response.ResponseError(c, apperror.ErrRateLimitExceeded)
		return
	}

	sub := service.ResourceSubmission{
		Title:         c.PostForm("title"),
		Organisations: c.PostForm("organisations"),
		Description:   c.PostForm("description"),
		URL:           c.PostForm("url"),
		HealthTopics:  c.PostFormArray("health_topic"),
		ResourceTypes: c.PostFormArray("resource_type"),
		Audiences:     c.PostFormArray("audience"),
		Geographies:   c.PostFormArray("geography"),
		Devices:       c.PostFormArray("device"),
		License:       c.PostForm("license"),
		OtherTags:     c.PostForm("other_tags"),
	}

	imageHeader, _ := c.FormFile("image")
	fileHeader, _ := c.FormFile("file")

	var imageReader, fileReader multipart.File
	if imageHeader != nil {
		sub.Image = submissionFile(imageHeader)
		if imageReader, err = imageHeader.Open(); err != nil {
			response.ResponseError(c, err)
			return
		}
		defer imageReader.Close()
	}
	if fileHeader != nil {
		sub.File = submissionFile(fileHeader)
		if fileReader, err = fileHeader.Open(); err != nil {
			response.ResponseError(c, err)
			return
		}
		defer fileReader.Close()
	}

	resource, err := h.resources.Submit(c.Request.Context(), userID, sub, imageReader, fileReader)
	if err != nil {
		if vr, ok := err.(*service.ValidationResult); ok {
			// Failed submissions do not consume the rate-limit window.
			_ = service.ClearRateLimit(c.Request.Context(), h.redisClient, userID, "submit_resource")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": vr})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resource)
}

func (h *ResourceHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	resources, total, err := h.resources.List(c.Request.Context(), repository.ResourceFilter{
		TagSlug: c.Query("tag"),
		Search:  c.Query("q"),
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resources, "total": total, "page": page, "limit": limit})
}

func (h *ResourceHandler) Get(c *gin.Context) {
	slug := c.Param("slug")

	detail, err := h.resources.GetBySlug(c.Request.Context(), slug, viewerFrom(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	trackerType := model.TrackerView
	if response.IsAPIClient(c) {
		trackerType = model.TrackerViewAPI
	}
	h.tracker.RecordAccess(service.AccessEvent{
		Type:       trackerType,
		UserID:     response.OptionalUserID(c),
		ResourceID: &detail.Resource.ID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, detail)
}

func (h *ResourceHandler) Hits(c *gin.Context) {
	hits, err := h.resources.HitCount(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (h *ResourceHandler) ListPending(c *gin.Context) {
	page, limit := pagination(c)
	resources, total, err := h.resources.ListPending(c.Request.Context(), (page-1)*limit, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resources, "total": total, "page": page, "limit": limit})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ResourceHandler) SetStatus(c *gin.Context) {
	reviewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	force := c.GetString("role") == model.RoleAdmin
	resource, err := h.moderation.SetStatus(c.Request.Context(), reviewerID, c.Param("slug"), req.Status, force)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resource)
}

func (h *ResourceHandler) AttachFile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	reader, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer reader.Close()

	rf, err := h.resources.AttachFile(c.Request.Context(), userID, c.Param("slug"),
		*submissionFile(fileHeader), reader,
		optionalForm(c, "title"), optionalForm(c, "description"))
	if err != nil {
		if vr, ok := err.(*service.ValidationResult); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": vr})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rf)
}

func (h *ResourceHandler) RemoveFile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := h.resources.RemoveFile(c.Request.Context(), userID, c.Param("slug"), fileID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "file removed"})
}

func (h *ResourceHandler) TagsInCategory(c *gin.Context) {
	categorySlug := c.Query("category")
	if categorySlug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	tags, err := h.resources.TagsInCategory(c.Request.Context(), c.Param("slug"), categorySlug)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tags})
}

type attachURLRequest struct {
	URL         string  `json:"url" binding:"required"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (h *ResourceHandler) AttachURL(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req attachURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ru, err := h.resources.AttachURL(c.Request.Context(), userID, c.Param("slug"), req.URL, req.Title, req.Description)
	if err != nil {
		if vr, ok := err.(*service.ValidationResult); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": vr})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ru)
}

type addTagsRequest struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}

func (h *ResourceHandler) AddTags(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req addTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.resources.AddTags(c.Request.Context(), userID, c.Param("slug"), req.Tags); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tags added"})
}

type relateRequest struct {
	RelatedSlug      string `json:"related_slug" binding:"required"`
	RelationshipType string `json:"relationship_type" binding:"required"`
	Description      string `json:"description" binding:"required"`
}

func (h *ResourceHandler) Relate(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req relateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rel, err := h.resources.Relate(c.Request.Context(), userID, c.Param("slug"), req.RelatedSlug, req.RelationshipType, req.Description)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rel)
}

// viewerFrom builds the resource viewer from whatever OptionalAuth
// resolved. Reviewers and admins see unapproved resources.
func viewerFrom(c *gin.Context) service.Viewer {
	role := c.GetString("role")
	return service.Viewer{
		UserID:   response.OptionalUserID(c),
		Reviewer: role == model.RoleAdmin || role == model.RoleReviewer,
	}
}

func submissionFile(header *multipart.FileHeader) *service.SubmissionFile {
	return &service.SubmissionFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
}

func optionalForm(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return &v
	}
	return nil
}

func pagination(c *gin.Context) (page, limit int) {
	page, limit = 1, 20
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}
