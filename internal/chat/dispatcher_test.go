package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapable-api/internal/store"
	filestore "mapable-api/internal/store/file"
)

func newDispatcher(t *testing.T) (*Dispatcher, store.ReviewStore, store.RequestStore) {
	t.Helper()
	dir := t.TempDir()
	reviews := filestore.NewReviewStore(dir)
	requests := filestore.NewRequestStore(dir)
	require.NoError(t, reviews.Initialize())
	require.NoError(t, requests.Initialize())
	return NewDispatcher(reviews, requests), reviews, requests
}

func TestKnown(t *testing.T) {
	d, _, _ := newDispatcher(t)
	assert.True(t, d.Known("create_review"))
	assert.True(t, d.Known("search_locations"))
	assert.False(t, d.Known("drop_tables"))
}

func TestDispatchUnknownFunction(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "nope", map[string]any{})
	assert.Error(t, err)
}

func TestDispatchCreateServiceRequest(t *testing.T) {
	d, _, requests := newDispatcher(t)
	ctx := context.Background()

	result, err := d.Dispatch(ctx, "create_service_request", map[string]any{
		"request_type":   "ramp",
		"latitude":       42.36,
		"longitude":      -71.06,
		"address":        "1 City Hall Sq",
		"description":    "entrance has no ramp",
		"requester_name": "alex",
		"priority":       "high",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	id, _ := result["request_id"].(string)
	require.NotEmpty(t, id)

	stored, err := requests.RequestByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "high", stored.Priority)
	assert.Equal(t, "pending", stored.Status)
}

func TestDispatchCreateServiceRequestMissingArgs(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "create_service_request", map[string]any{
		"request_type": "ramp",
	})
	assert.Error(t, err)
}

func TestDispatchCreateReview(t *testing.T) {
	d, reviews, _ := newDispatcher(t)
	ctx := context.Background()

	// rating 以浮点形式到达（JSON 解码产物）
	result, err := d.Dispatch(ctx, "create_review", map[string]any{
		"location_id": "loc-1",
		"latitude":    42.36,
		"longitude":   -71.06,
		"title":       "t",
		"content":     "c",
		"rating":      float64(4),
		"author":      "alex",
		"tags":        []any{"ramp", 7, "elevator"},
	})
	require.NoError(t, err)
	id, _ := result["review_id"].(string)
	require.NotEmpty(t, id)

	stored, err := reviews.ReviewByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, []string{"ramp", "elevator"}, stored.Tags)
}

func TestDispatchSearchLocations(t *testing.T) {
	d, reviews, _ := newDispatcher(t)
	ctx := context.Background()
	_, err := reviews.CreateReview(ctx, store.ReviewInput{
		LocationID: "boston", Latitude: 42.3601, Longitude: -71.0589, Rating: 4,
	})
	require.NoError(t, err)
	_, err = reviews.CreateReview(ctx, store.ReviewInput{
		LocationID: "nyc", Latitude: 40.7128, Longitude: -74.0060, Rating: 3,
	})
	require.NoError(t, err)

	// 带坐标走附近查询，默认半径 5 英里
	result, err := d.Dispatch(ctx, "search_locations", map[string]any{
		"latitude": 42.3601, "longitude": -71.0589,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result["count"])
	items := result["locations"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "boston", items[0]["location_id"])
	assert.Contains(t, items[0], "distance_miles")

	// 不带坐标返回全量
	all, err := d.Dispatch(ctx, "search_locations", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 2, all["count"])
}

func TestDispatchGetLocationReviews(t *testing.T) {
	d, reviews, _ := newDispatcher(t)
	ctx := context.Background()
	_, err := reviews.CreateReview(ctx, store.ReviewInput{
		LocationID: "loc-1", Latitude: 42.36, Longitude: -71.06, Rating: 5,
		Title: "t", Content: "c", Author: "a",
	})
	require.NoError(t, err)

	result, err := d.Dispatch(ctx, "get_location_reviews", map[string]any{"location_id": "loc-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result["count"])

	empty, err := d.Dispatch(ctx, "get_location_reviews", map[string]any{"location_id": "loc-9"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty["count"])
}

func TestDispatchMalformedArgTypes(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, "create_review", map[string]any{
		"location_id": 42,
	})
	assert.Error(t, err)

	_, err = d.Dispatch(ctx, "search_locations", map[string]any{
		"latitude": "not-a-number", "longitude": -71.06,
	})
	assert.Error(t, err)
}
