package service_test

import (
	"context"
	"testing"

	"github.com/healthorb/orb-server/internal/model"
	"github.com/healthorb/orb-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	db := newTestDB(t)
	_, moderation, _, _ := newResourceStack(t, db)

	cases := []struct {
		from, to string
		force    bool
		want     bool
	}{
		{model.StatusPendingCRT, model.StatusPendingMRT, false, true},
		{model.StatusPendingCRT, model.StatusRejected, false, true},
		{model.StatusPendingCRT, model.StatusApproved, false, false},
		{model.StatusPendingMRT, model.StatusApproved, false, true},
		{model.StatusPendingMRT, model.StatusRejected, false, true},
		{model.StatusPendingMRT, model.StatusPendingCRT, false, false},
		{model.StatusApproved, model.StatusRejected, false, false},
		{model.StatusRejected, model.StatusPendingCRT, false, false},

		// Admins can force any valid target.
		{model.StatusPendingCRT, model.StatusApproved, true, true},
		{model.StatusApproved, model.StatusRejected, true, true},
		{model.StatusApproved, "published", true, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, moderation.CanTransition(c.from, c.to, c.force),
			"%s -> %s force=%v", c.from, c.to, c.force)
	}
}

func TestSetStatusWalksTheReviewPipeline(t *testing.T) {
	db := newTestDB(t)
	resources, moderation, _, search := newResourceStack(t, db)
	submitter := seedUser(t, db, "maria")
	reviewer := seedUser(t, db, "rob")
	seedFormOptions(t, db, submitter)

	created, err := resources.Submit(context.Background(), submitter.ID, fullSubmission(), nil, nil)
	require.NoError(t, err)

	// A reviewer cannot jump straight to approved.
	_, err = moderation.SetStatus(context.Background(), reviewer.ID, created.Slug, model.StatusApproved, false)
	require.Error(t, err)

	updated, err := moderation.SetStatus(context.Background(), reviewer.ID, created.Slug, model.StatusPendingMRT, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingMRT, updated.Status)
	assert.Equal(t, reviewer.ID, updated.UpdateUserID)
	assert.False(t, search.contains(created.ID))

	updated, err = moderation.SetStatus(context.Background(), reviewer.ID, created.Slug, model.StatusApproved, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)
	assert.True(t, search.contains(created.ID))

	// Approval makes the resource publicly visible.
	_, err = resources.GetBySlug(context.Background(), created.Slug, service.Viewer{})
	require.NoError(t, err)

	// A forced rejection takes it back out of the index.
	_, err = moderation.SetStatus(context.Background(), reviewer.ID, created.Slug, model.StatusRejected, true)
	require.NoError(t, err)
	assert.False(t, search.contains(created.ID))
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	resources, moderation, _, _ := newResourceStack(t, db)
	submitter := seedUser(t, db, "maria")
	reviewer := seedUser(t, db, "rob")
	seedFormOptions(t, db, submitter)

	created, err := resources.Submit(context.Background(), submitter.ID, fullSubmission(), nil, nil)
	require.NoError(t, err)

	_, err = moderation.SetStatus(context.Background(), reviewer.ID, created.Slug, "published", true)
	assert.Error(t, err)
}
