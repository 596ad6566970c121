package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
	"github.com/healthorb/orb-server/pkg/apperror"
	"github.com/healthorb/orb-server/pkg/slugify"
	"github.com/healthorb/orb-server/pkg/storage"
	"gorm.io/gorm"
)

type ResourceService interface {
	// Submit validates the submission and, on success, creates the
	// resource with its file, URL and tag children atomically. The new
	// resource starts in pending_crt.
	Submit(ctx context.Context, userID uuid.UUID, sub ResourceSubmission, image, file io.Reader) (*model.Resource, error)
	GetBySlug(ctx context.Context, slug string, viewer Viewer) (*ResourceDetail, error)
	List(ctx context.Context, filter repository.ResourceFilter) ([]*model.Resource, int64, error)
	ListPending(ctx context.Context, offset, limit int) ([]*model.Resource, int64, error)

	AttachFile(ctx context.Context, userID uuid.UUID, slug string, file SubmissionFile, content io.Reader, title, description *string) (*model.ResourceFile, error)
	AttachURL(ctx context.Context, userID uuid.UUID, slug, rawURL string, title, description *string) (*model.ResourceURL, error)
	RemoveFile(ctx context.Context, userID uuid.UUID, slug string, fileID uuid.UUID) error
	AddTags(ctx context.Context, userID uuid.UUID, slug string, tagSlugs []string) error
	Relate(ctx context.Context, userID uuid.UUID, slug, relatedSlug, relationshipType, description string) (*model.ResourceRelationship, error)

	TagsInCategory(ctx context.Context, slug, categorySlug string) ([]*model.Tag, error)
	HitCount(ctx context.Context, slug string) (int64, error)
}

// Viewer identifies who is reading a resource. Unapproved resources are
// visible only to their submitter and to reviewers.
type Viewer struct {
	UserID   *uuid.UUID
	Reviewer bool
}

func (v Viewer) canSee(resource *model.Resource) bool {
	if resource.Status == model.StatusApproved || v.Reviewer {
		return true
	}
	return v.UserID != nil && *v.UserID == resource.CreateUserID
}

// ResourceDetail is a resource with its per-category tags and usage
// figures, the shape a detail page renders.
type ResourceDetail struct {
	Resource   *model.Resource   `json:"resource"`
	Categories []*model.Category `json:"categories"`
	Hits       int64             `json:"hits"`
	AvgRating  float64           `json:"avg_rating"`
	NumRatings int64             `json:"num_ratings"`
}

type resourceService struct {
	resourceRepo repository.ResourceRepository
	ratingRepo   repository.RatingRepository
	validator    *SubmissionValidator
	tags         TagService
	tracker      TrackerService
	fileStorage  storage.FileStorage
}

func NewResourceService(
	resourceRepo repository.ResourceRepository,
	ratingRepo repository.RatingRepository,
	validator *SubmissionValidator,
	tags TagService,
	tracker TrackerService,
	fileStorage storage.FileStorage,
) ResourceService {
	return &resourceService{
		resourceRepo: resourceRepo,
		ratingRepo:   ratingRepo,
		validator:    validator,
		tags:         tags,
		tracker:      tracker,
		fileStorage:  fileStorage,
	}
}

func (s *resourceService) Submit(ctx context.Context, userID uuid.UUID, sub ResourceSubmission, image, file io.Reader) (*model.Resource, error) {
	validated, err := s.validator.Validate(ctx, sub)
	if err != nil {
		return nil, err
	}

	tagIDs, err := s.tags.ResolveTagSlugs(ctx, validated.TagSlugs)
	if err != nil {
		return nil, err
	}

	// Organisations and free-text tags resolve by name, creating registry
	// entries as needed.
	for _, name := range validated.OrganisationNames {
		tag, err := s.tags.FindOrCreateByName(ctx, CategoryOrganisation, name, userID)
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	for _, name := range validated.OtherTagNames {
		tag, err := s.tags.FindOrCreateByName(ctx, CategoryOther, name, userID)
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	tagIDs = dedupeIDs(tagIDs)

	slug, err := slugify.Unique(ctx, validated.Title, s.resourceRepo.SlugExists)
	if err != nil {
		return nil, err
	}

	resource := &model.Resource{
		Title:        validated.Title,
		Description:  validated.Description,
		Status:       model.StatusPendingCRT,
		Slug:         slug,
		CreateUserID: userID,
		UpdateUserID: userID,
	}

	if sub.Image != nil && image != nil {
		imageURL, err := s.fileStorage.UploadFile(ctx, image, storage.KindResourceImage, sub.Image.Name)
		if err != nil {
			return nil, err
		}
		resource.ImageURL = &imageURL
	}

	var files []model.ResourceFile
	if sub.File != nil && file != nil {
		fileURL, err := s.fileStorage.UploadFile(ctx, file, storage.KindResource, sub.File.Name)
		if err != nil {
			return nil, err
		}
		files = append(files, model.ResourceFile{
			FileURL:      fileURL,
			FileName:     sub.File.Name,
			CreateUserID: userID,
			UpdateUserID: userID,
		})
	}

	var urls []model.ResourceURL
	if validated.URL != "" {
		urls = append(urls, model.ResourceURL{
			URL:          validated.URL,
			CreateUserID: userID,
			UpdateUserID: userID,
		})
	}

	if err := s.resourceRepo.CreateWithChildren(ctx, resource, files, urls, tagIDs); err != nil {
		return nil, err
	}

	s.tracker.RecordAccess(AccessEvent{
		Type:       model.TrackerCreate,
		UserID:     &userID,
		ResourceID: &resource.ID,
	})

	return resource, nil
}

func (s *resourceService) GetBySlug(ctx context.Context, slug string, viewer Viewer) (*ResourceDetail, error) {
	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if !viewer.canSee(resource) {
		return nil, apperror.ErrNotFound
	}

	categories, err := s.resourceRepo.CategoriesFor(ctx, resource.ID)
	if err != nil {
		return nil, err
	}

	hits, err := s.tracker.HitCount(ctx, resource.ID)
	if err != nil {
		return nil, err
	}

	avg, count, err := s.ratingRepo.Summary(ctx, resource.ID)
	if err != nil {
		return nil, err
	}

	return &ResourceDetail{
		Resource:   resource,
		Categories: categories,
		Hits:       hits,
		AvgRating:  avg,
		NumRatings: count,
	}, nil
}

func (s *resourceService) List(ctx context.Context, filter repository.ResourceFilter) ([]*model.Resource, int64, error) {
	// The public list never exposes unapproved resources.
	filter.Status = model.StatusApproved
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.resourceRepo.FindAll(ctx, filter)
}

func (s *resourceService) ListPending(ctx context.Context, offset, limit int) ([]*model.Resource, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.resourceRepo.FindAll(ctx, repository.ResourceFilter{
		Status: model.StatusPendingCRT,
		Offset: offset,
		Limit:  limit,
	})
}

func (s *resourceService) AttachFile(ctx context.Context, userID uuid.UUID, slug string, file SubmissionFile, content io.Reader, title, description *string) (*model.ResourceFile, error) {
	resource, err := s.findOwned(ctx, userID, slug)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateFile(&file); err != nil {
		return nil, err
	}

	fileURL, err := s.fileStorage.UploadFile(ctx, content, storage.KindResource, file.Name)
	if err != nil {
		return nil, err
	}

	rf := &model.ResourceFile{
		ResourceID:   resource.ID,
		FileURL:      fileURL,
		FileName:     file.Name,
		Title:        title,
		Description:  description,
		CreateUserID: userID,
		UpdateUserID: userID,
	}
	if err := s.resourceRepo.AddFile(ctx, rf); err != nil {
		return nil, err
	}

	s.tracker.RecordAccess(AccessEvent{
		Type:           model.TrackerEdit,
		UserID:         &userID,
		ResourceID:     &resource.ID,
		ResourceFileID: &rf.ID,
	})

	return rf, nil
}

// RemoveFile detaches a file from the resource and removes it from the
// upload store. The storage delete is best effort; a stale object in the
// store is preferable to a dangling database row.
func (s *resourceService) RemoveFile(ctx context.Context, userID uuid.UUID, slug string, fileID uuid.UUID) error {
	resource, err := s.findOwned(ctx, userID, slug)
	if err != nil {
		return err
	}

	file, err := s.resourceRepo.FindFile(ctx, resource.ID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if err := s.resourceRepo.RemoveFile(ctx, file.ID); err != nil {
		return err
	}

	if err := s.fileStorage.DeleteFile(ctx, file.FileURL); err != nil {
		log.Printf("storage: failed to delete %s: %v", file.FileURL, err)
	}

	return nil
}

func (s *resourceService) AttachURL(ctx context.Context, userID uuid.UUID, slug, rawURL string, title, description *string) (*model.ResourceURL, error) {
	resource, err := s.findOwned(ctx, userID, slug)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	ru := &model.ResourceURL{
		ResourceID:   resource.ID,
		URL:          rawURL,
		Title:        title,
		Description:  description,
		CreateUserID: userID,
		UpdateUserID: userID,
	}
	if err := s.resourceRepo.AddURL(ctx, ru); err != nil {
		return nil, err
	}

	s.tracker.RecordAccess(AccessEvent{
		Type:          model.TrackerEdit,
		UserID:        &userID,
		ResourceID:    &resource.ID,
		ResourceURLID: &ru.ID,
	})

	return ru, nil
}

// AddTags associates registry tags with the resource. There is no
// uniqueness constraint on the association table, so existing tag IDs are
// filtered out here before writing.
func (s *resourceService) AddTags(ctx context.Context, userID uuid.UUID, slug string, tagSlugs []string) error {
	resource, err := s.findOwned(ctx, userID, slug)
	if err != nil {
		return err
	}

	tagIDs, err := s.tags.ResolveTagSlugs(ctx, tagSlugs)
	if err != nil {
		return err
	}

	existing, err := s.resourceRepo.TagIDsFor(ctx, resource.ID)
	if err != nil {
		return err
	}
	attached := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		attached[id] = true
	}

	for _, tagID := range dedupeIDs(tagIDs) {
		if attached[tagID] {
			continue
		}
		rt := &model.ResourceTag{
			ResourceID:   resource.ID,
			TagID:        tagID,
			CreateUserID: userID,
		}
		if err := s.resourceRepo.AddTag(ctx, rt); err != nil {
			return err
		}
	}

	return nil
}

func (s *resourceService) Relate(ctx context.Context, userID uuid.UUID, slug, relatedSlug, relationshipType, description string) (*model.ResourceRelationship, error) {
	if !model.ValidRelationshipType(relationshipType) {
		return nil, apperror.New(0, "unknown relationship type: "+relationshipType, apperror.ErrInvalidInput)
	}
	if description == "" {
		return nil, apperror.New(0, "relationship description is required", apperror.ErrInvalidInput)
	}

	resource, err := s.findOwned(ctx, userID, slug)
	if err != nil {
		return nil, err
	}

	related, err := s.resourceRepo.FindBySlug(ctx, relatedSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	rel := &model.ResourceRelationship{
		ResourceID:        resource.ID,
		RelatedResourceID: related.ID,
		RelationshipType:  relationshipType,
		Description:       description,
		CreateUserID:      userID,
		UpdateUserID:      userID,
	}
	if err := s.resourceRepo.AddRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// TagsInCategory returns the resource's tags within one category, the
// per-category view the detail page's grouped listing is built from.
func (s *resourceService) TagsInCategory(ctx context.Context, slug, categorySlug string) ([]*model.Tag, error) {
	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return s.resourceRepo.TagsByCategorySlug(ctx, resource.ID, categorySlug)
}

func (s *resourceService) HitCount(ctx context.Context, slug string) (int64, error) {
	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperror.ErrNotFound
		}
		return 0, err
	}
	return s.tracker.HitCount(ctx, resource.ID)
}

func (s *resourceService) findOwned(ctx context.Context, userID uuid.UUID, slug string) (*model.Resource, error) {
	resource, err := s.resourceRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if resource.CreateUserID != userID {
		return nil, apperror.ErrForbidden
	}
	return resource, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
