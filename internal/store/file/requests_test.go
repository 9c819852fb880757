package file

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapable-api/internal/store"
)

func newRequestStore(t *testing.T) *RequestStore {
	t.Helper()
	s := NewRequestStore(t.TempDir())
	require.NoError(t, s.Initialize())
	return s
}

func mustRequest(t *testing.T, s *RequestStore, in store.RequestInput) store.ServiceRequest {
	t.Helper()
	r, err := s.CreateRequest(context.Background(), in)
	require.NoError(t, err)
	return r
}

func TestCreateRequestDefaults(t *testing.T) {
	s := newRequestStore(t)
	r := mustRequest(t, s, store.RequestInput{
		RequestType: "Ramp",
		Latitude:    42.36, Longitude: -71.06,
		Address: "a", Description: "d", RequesterName: "n",
	})
	assert.Equal(t, "ramp", r.RequestType)
	assert.Equal(t, "pending", r.Status)
	assert.Equal(t, "medium", r.Priority)
	assert.NotEmpty(t, r.RequestID)
}

func TestCreateRequestValidation(t *testing.T) {
	s := newRequestStore(t)
	ctx := context.Background()

	_, err := s.CreateRequest(ctx, store.RequestInput{RequestType: "escalator"})
	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "request_type", ve.Field)

	_, err = s.CreateRequest(ctx, store.RequestInput{RequestType: "ramp", Priority: "urgent"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "priority", ve.Field)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	s := newRequestStore(t)
	ctx := context.Background()
	r := mustRequest(t, s, store.RequestInput{RequestType: "parking"})

	updated, err := s.UpdateStatus(ctx, r.RequestID, "In-Progress")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", updated.Status)
	assert.False(t, updated.UpdatedAt.Before(r.UpdatedAt))

	// 非法状态拒绝且不落盘
	_, err = s.UpdateStatus(ctx, r.RequestID, "done")
	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	got, err := s.RequestByID(ctx, r.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "in-progress", got.Status)

	_, err = s.UpdateStatus(ctx, "missing", "completed")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRequestsFilters(t *testing.T) {
	s := newRequestStore(t)
	ctx := context.Background()
	mustRequest(t, s, store.RequestInput{RequestType: "ramp", Priority: "high"})
	mustRequest(t, s, store.RequestInput{RequestType: "ramp", Priority: "low"})
	r := mustRequest(t, s, store.RequestInput{RequestType: "signage"})
	_, err := s.UpdateStatus(ctx, r.RequestID, "completed")
	require.NoError(t, err)

	byType, err := s.Requests(ctx, store.RequestFilter{RequestType: "RAMP"})
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byPriority, err := s.Requests(ctx, store.RequestFilter{Priority: "high"})
	require.NoError(t, err)
	assert.Len(t, byPriority, 1)

	byStatus, err := s.Requests(ctx, store.RequestFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	combined, err := s.Requests(ctx, store.RequestFilter{RequestType: "ramp", Priority: "low"})
	require.NoError(t, err)
	assert.Len(t, combined, 1)
}

func TestDeleteRequest(t *testing.T) {
	s := newRequestStore(t)
	ctx := context.Background()
	r := mustRequest(t, s, store.RequestInput{RequestType: "restroom"})

	require.NoError(t, s.DeleteRequest(ctx, r.RequestID))
	_, err := s.RequestByID(ctx, r.RequestID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteRequest(ctx, r.RequestID), store.ErrNotFound))
}

func TestRequestStatsGrouping(t *testing.T) {
	s := newRequestStore(t)
	ctx := context.Background()
	mustRequest(t, s, store.RequestInput{RequestType: "ramp", Priority: "high"})
	mustRequest(t, s, store.RequestInput{RequestType: "ramp"})
	r := mustRequest(t, s, store.RequestInput{RequestType: "other"})
	_, err := s.UpdateStatus(ctx, r.RequestID, "rejected")
	require.NoError(t, err)

	st, err := s.RequestStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByStatus["pending"])
	assert.Equal(t, 1, st.ByStatus["rejected"])
	assert.Equal(t, 2, st.ByType["ramp"])
	assert.Equal(t, 2, st.ByPriority["medium"])
	assert.Equal(t, 1, st.ByPriority["high"])
}

func TestRequestOptionalFieldsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	locID := "loc-1"
	email := "a@example.com"

	s := NewRequestStore(dir)
	require.NoError(t, s.Initialize())
	created, err := s.CreateRequest(ctx, store.RequestInput{
		RequestType: "ramp",
		LocationID:  &locID, RequesterEmail: &email,
	})
	require.NoError(t, err)

	reopened := NewRequestStore(dir)
	require.NoError(t, reopened.Initialize())
	got, err := reopened.RequestByID(ctx, created.RequestID)
	require.NoError(t, err)
	require.NotNil(t, got.LocationID)
	assert.Equal(t, locID, *got.LocationID)
	require.NotNil(t, got.RequesterEmail)
	assert.Equal(t, email, *got.RequesterEmail)
}
