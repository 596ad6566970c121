package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/repository"
)

// AccessEvent describes one tracked access. Everything except Type is
// optional; the actor is nil for anonymous access.
type AccessEvent struct {
	Type           string
	UserID         *uuid.UUID
	ResourceID     *uuid.UUID
	ResourceFileID *uuid.UUID
	ResourceURLID  *uuid.UUID
	IP             string
	UserAgent      string
	ExtraData      string
}

type SearchEvent struct {
	Type      string
	UserID    *uuid.UUID
	Query     string
	NoResults int
	IP        string
	UserAgent string
}

// TrackerService records usage events. Record calls are fire-and-forget:
// the insert runs detached from the request and a failure never reaches
// the caller.
type TrackerService interface {
	RecordAccess(event AccessEvent)
	RecordSearch(event SearchEvent)
	HitCount(ctx context.Context, resourceID uuid.UUID) (int64, error)
	// LocationForIP returns nil, nil when the IP has no known location.
	LocationForIP(ctx context.Context, ip string) (*model.UserLocation, error)
	Locations(ctx context.Context, limit int) ([]*model.UserLocation, error)
}

type trackerService struct {
	repo repository.TrackerRepository
}

func NewTrackerService(repo repository.TrackerRepository) TrackerService {
	return &trackerService{repo: repo}
}

func (s *trackerService) RecordAccess(event AccessEvent) {
	if event.Type == "" {
		event.Type = model.TrackerView
	}

	row := &model.ResourceTracker{
		Type:           event.Type,
		UserID:         event.UserID,
		ResourceID:     event.ResourceID,
		ResourceFileID: event.ResourceFileID,
		ResourceURLID:  event.ResourceURLID,
		IP:             optionalString(event.IP),
		UserAgent:      optionalString(event.UserAgent),
		ExtraData:      optionalString(event.ExtraData),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.CreateAccess(ctx, row); err != nil {
			log.Printf("tracker: failed to record %s access: %v", event.Type, err)
		}
	}()
}

func (s *trackerService) RecordSearch(event SearchEvent) {
	if event.Type == "" {
		event.Type = model.SearchWeb
	}

	row := &model.SearchTracker{
		Type:      event.Type,
		UserID:    event.UserID,
		Query:     event.Query,
		NoResults: event.NoResults,
		IP:        optionalString(event.IP),
		UserAgent: optionalString(event.UserAgent),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.CreateSearch(ctx, row); err != nil {
			log.Printf("tracker: failed to record search: %v", err)
		}
	}()
}

// HitCount sums distinct anonymous IPs and distinct identified users. The
// buckets are independent, so a person who viewed both ways counts twice.
func (s *trackerService) HitCount(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	anon, identified, err := s.repo.HitCounts(ctx, resourceID)
	if err != nil {
		return 0, err
	}
	return anon + identified, nil
}

func (s *trackerService) LocationForIP(ctx context.Context, ip string) (*model.UserLocation, error) {
	if ip == "" {
		return nil, nil
	}
	return s.repo.LocationByIP(ctx, ip)
}

func (s *trackerService) Locations(ctx context.Context, limit int) ([]*model.UserLocation, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.repo.Locations(ctx, limit)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
