package service

import (
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/healthorb/orb-server/internal/model"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const resourceIndex = "resources"

// SearchService maintains the search index over approved resources. Only
// approved documents are ever searchable; moderation withdraws documents
// on any other status.
type SearchService interface {
	IndexResource(resource *model.Resource, tagSlugs []string) error
	RemoveResource(id string) error
	Search(query string, tagSlug string, offset, limit int) (*SearchResults, error)
}

type SearchResults struct {
	Hits  []ResourceDoc `json:"hits"`
	Total int64         `json:"total"`
}

type ResourceDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
	CreatedAt   int64    `json:"created_at"`
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *searchService) initIndex() {
	filterableAttrs := []string{"status", "tags"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(resourceIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update resources filterable attributes: %v", err)
	}

	sortableAttrs := []string{"created_at"}
	if _, err := s.client.Index(resourceIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update resources sortable attributes: %v", err)
	}
}

// cleanForIndex strips markup from rich-text descriptions before indexing.
func (s *searchService) cleanForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)

	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexResource(resource *model.Resource, tagSlugs []string) error {
	doc := ResourceDoc{
		ID:          resource.ID.String(),
		Title:       resource.Title,
		Description: s.cleanForIndex(resource.Description),
		Slug:        resource.Slug,
		Status:      resource.Status,
		Tags:        tagSlugs,
		CreatedAt:   resource.CreatedAt.Unix(),
	}

	task, err := s.client.Index(resourceIndex).AddDocuments([]ResourceDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed resource %s, task id: %d", resource.ID, task.TaskUID)
	return nil
}

func (s *searchService) RemoveResource(id string) error {
	_, err := s.client.Index(resourceIndex).DeleteDocument(id)
	return err
}

func (s *searchService) Search(query string, tagSlug string, offset, limit int) (*SearchResults, error) {
	filter := fmt.Sprintf("status = %s", model.StatusApproved)
	if tagSlug != "" {
		filter = fmt.Sprintf("%s AND tags = %q", filter, tagSlug)
	}

	resp, err := s.client.Index(resourceIndex).Search(query, &meilisearch.SearchRequest{
		Filter: filter,
		Offset: int64(offset),
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, err
	}

	return &SearchResults{
		Hits:  decodeHits(resp.Hits),
		Total: resp.EstimatedTotalHits,
	}, nil
}

func decodeHits(hits meilisearch.Hits) []ResourceDoc {
	docs := make([]ResourceDoc, 0, len(hits))
	for _, hit := range hits {
		var doc ResourceDoc
		if err := hit.DecodeInto(&doc); err != nil {
			log.Printf("search: failed to decode hit: %v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

func strPtr(s string) *string {
	return &s
}
