package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/handler"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearch struct {
	results *service.SearchResults
}

func (s *stubSearch) IndexResource(*model.Resource, []string) error { return nil }
func (s *stubSearch) RemoveResource(string) error                   { return nil }
func (s *stubSearch) Search(query, tagSlug string, offset, limit int) (*service.SearchResults, error) {
	return s.results, nil
}

type recordingTracker struct {
	searches []service.SearchEvent
}

func (r *recordingTracker) RecordAccess(service.AccessEvent)  {}
func (r *recordingTracker) RecordSearch(e service.SearchEvent) { r.searches = append(r.searches, e) }
func (r *recordingTracker) HitCount(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (r *recordingTracker) LocationForIP(context.Context, string) (*model.UserLocation, error) {
	return nil, nil
}
func (r *recordingTracker) Locations(context.Context, int) ([]*model.UserLocation, error) {
	return nil, nil
}

func TestSearchRecordsTotalResultCount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// One page of two hits out of 42 total; the tracker logs the total.
	search := &stubSearch{results: &service.SearchResults{
		Hits:  []service.ResourceDoc{{ID: "a"}, {ID: "b"}},
		Total: 42,
	}}
	tracker := &recordingTracker{}

	router := gin.New()
	router.GET("/search", handler.NewSearchHandler(search, tracker).Search)

	req := httptest.NewRequest(http.MethodGet, "/search?q=diabetes&limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, tracker.searches, 1)
	assert.Equal(t, model.SearchWeb, tracker.searches[0].Type)
	assert.Equal(t, "diabetes", tracker.searches[0].Query)
	assert.Equal(t, 42, tracker.searches[0].NoResults)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tracker := &recordingTracker{}
	router := gin.New()
	router.GET("/search", handler.NewSearchHandler(&stubSearch{}, tracker).Search)

	req := httptest.NewRequest(http.MethodGet, "/search?q=++", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter something to search for")
	assert.Empty(t, tracker.searches)
}
