package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapable-api/internal/cache"
	"mapable-api/internal/chat"
	"mapable-api/internal/config"
	"mapable-api/internal/restrooms"
	"mapable-api/internal/store"
	filestore "mapable-api/internal/store/file"
)

const upstreamBody = `{"result":{"records":[
	{"name":"City Hall Plaza","neighborhood":"Downtown","latitude":42.3601,"longitude":-71.0589},
	{"name":"Fenway Kiosk","neighborhood":"Fenway","latitude":42.3467,"longitude":-71.0972}
]}}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(upstream.Close)

	dir := t.TempDir()
	reviews := filestore.NewReviewStore(dir)
	requests := filestore.NewRequestStore(dir)
	require.NoError(t, reviews.Initialize())
	require.NoError(t, requests.Initialize())

	registry := cache.NewRegistry()
	chatSvc, err := chat.NewService(context.Background(), "", "gemini-2.0-flash",
		chat.NewDispatcher(reviews, requests))
	require.NoError(t, err)

	mux := BuildRoutes(&Deps{
		Settings:  config.Settings{AppName: "MapAble API", AppVersion: "0.1.0"},
		Reviews:   reviews,
		Requests:  requests,
		Restrooms: restrooms.NewService(upstream.URL, time.Hour, nil, registry),
		Registry:  registry,
		Chat:      chatSvc,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createReview(t *testing.T, base, locationID string, lat, lon float64, rating int) store.Review {
	t.Helper()
	var r store.Review
	resp := doJSON(t, http.MethodPost, base+"/reviews", store.ReviewInput{
		LocationID: locationID, Latitude: lat, Longitude: lon,
		Title: "t", Content: "c", Rating: rating, Author: "a",
	}, &r)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return r
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestEcho(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	resp := doJSON(t, http.MethodPost, srv.URL+"/echo", map[string]string{"message": "hi"}, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hi", body["message"])
}

func TestReviewLifecycle(t *testing.T) {
	srv := newTestServer(t)
	created := createReview(t, srv.URL, "loc-1", 42.36, -71.06, 4)
	createReview(t, srv.URL, "loc-1", 42.36, -71.06, 2)

	var list struct {
		Total   int            `json:"total"`
		Reviews []store.Review `json:"reviews"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/reviews", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, list.Total)

	var single store.Review
	resp = doJSON(t, http.MethodGet, srv.URL+"/reviews/id/"+created.ReviewID, nil, &single)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ReviewID, single.ReviewID)

	// 地点聚合随写入维护
	var loc struct {
		LocationID    string   `json:"location_id"`
		ReviewCount   int      `json:"review_count"`
		AverageRating *float64 `json:"average_rating"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/locations/loc-1", nil, &loc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, loc.ReviewCount)
	require.NotNil(t, loc.AverageRating)
	assert.Equal(t, 3.0, *loc.AverageRating)

	var del deleteResponse
	resp = doJSON(t, http.MethodDelete, srv.URL+"/reviews/"+created.ReviewID, nil, &del)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", del.Status)
	assert.Equal(t, created.ReviewID, del.ReviewID)

	var errBody errorResponse
	resp = doJSON(t, http.MethodGet, srv.URL+"/reviews/id/"+created.ReviewID, nil, &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, errBody.Detail)
}

func TestNearbyLocations(t *testing.T) {
	srv := newTestServer(t)
	createReview(t, srv.URL, "boston", 42.3601, -71.0589, 4)
	createReview(t, srv.URL, "nyc", 40.7128, -74.0060, 3)

	var body struct {
		Total     int                    `json:"total"`
		Locations []store.NearbyLocation `json:"locations"`
	}
	url := fmt.Sprintf("%s/locations/nearby?latitude=42.3601&longitude=-71.0589&radius_miles=5", srv.URL)
	resp := doJSON(t, http.MethodGet, url, nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "boston", body.Locations[0].LocationID)

	// 半径 0 仍命中距离恰为 0 的地点
	url = fmt.Sprintf("%s/locations/nearby?latitude=42.3601&longitude=-71.0589&radius_miles=0", srv.URL)
	resp = doJSON(t, http.MethodGet, url, nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.Total)

	// 无坐标且无 geoip 定位 → 400
	var errBody errorResponse
	resp = doJSON(t, http.MethodGet, srv.URL+"/locations/nearby", nil, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errBody.Detail)
}

func TestReviewExport(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/reviews/export")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	createReview(t, srv.URL, "loc-1", 42.36, -71.06, 4)
	resp, err = http.Get(srv.URL + "/reviews/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("content-type"))
	assert.Contains(t, resp.Header.Get("content-disposition"), "reviews.csv")
}

func TestServiceRequestLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var created store.ServiceRequest
	resp := doJSON(t, http.MethodPost, srv.URL+"/service-requests", store.RequestInput{
		RequestType: "Ramp", Latitude: 42.36, Longitude: -71.06,
		Address: "a", Description: "d", RequesterName: "n",
	}, &created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "medium", created.Priority)

	var updated store.ServiceRequest
	resp = doJSON(t, http.MethodPatch, srv.URL+"/service-requests/"+created.RequestID+"/status",
		statusUpdateBody{Status: "in-progress"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in-progress", updated.Status)

	// 非法状态 → 400，且记录不变
	var errBody errorResponse
	resp = doJSON(t, http.MethodPatch, srv.URL+"/service-requests/"+created.RequestID+"/status",
		statusUpdateBody{Status: "done"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errBody.Detail, "Invalid status")

	var got store.ServiceRequest
	resp = doJSON(t, http.MethodGet, srv.URL+"/service-requests/"+created.RequestID, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in-progress", got.Status)

	var stats store.RequestStats
	resp = doJSON(t, http.MethodGet, srv.URL+"/service-requests/stats/summary", nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["in-progress"])

	var del deleteResponse
	resp = doJSON(t, http.MethodDelete, srv.URL+"/service-requests/"+created.RequestID, nil, &del)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.RequestID, del.RequestID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/service-requests/"+created.RequestID, nil, &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServiceRequestInvalidType(t *testing.T) {
	srv := newTestServer(t)
	var errBody errorResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/service-requests", store.RequestInput{
		RequestType: "escalator",
	}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errBody.Detail, "Invalid request_type")
}

func TestServiceRequestFilters(t *testing.T) {
	srv := newTestServer(t)
	for _, p := range []string{"high", "low", "high"} {
		var created store.ServiceRequest
		resp := doJSON(t, http.MethodPost, srv.URL+"/service-requests", store.RequestInput{
			RequestType: "ramp", Priority: p,
		}, &created)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Total int `json:"total"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/service-requests?priority=high", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, body.Total)
}

func TestRestroomsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var list restroomsResponse
	resp := doJSON(t, http.MethodGet, srv.URL+"/restrooms", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, list.Total)

	var nearby restroomsResponse
	url := fmt.Sprintf("%s/restrooms/nearby?latitude=42.3601&longitude=-71.0589&radius_miles=1", srv.URL)
	resp = doJSON(t, http.MethodGet, url, nil, &nearby)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, nearby.Total)
	assert.Equal(t, "City Hall Plaza", *nearby.Restrooms[0].Name)

	var byHood restroomsResponse
	resp = doJSON(t, http.MethodGet, srv.URL+"/restrooms/neighborhood/fenway", nil, &byHood)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, byHood.Total)
}

func TestCacheEndpoints(t *testing.T) {
	srv := newTestServer(t)
	// 先触发一次抓取让 restrooms 缓存登记
	doJSON(t, http.MethodGet, srv.URL+"/restrooms", nil, nil)

	var db struct {
		Caches map[string]cache.Entry `json:"caches"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/cache/database", nil, &db)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, db.Caches, "restrooms")

	var entry cache.Entry
	resp = doJSON(t, http.MethodGet, srv.URL+"/cache/database/restrooms", nil, &entry)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, entry.Data, 2)

	var errBody errorResponse
	resp = doJSON(t, http.MethodGet, srv.URL+"/cache/database/nope", nil, &errBody)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, errBody.Detail, "restrooms")

	resp = doJSON(t, http.MethodPost, srv.URL+"/cache/register/manual",
		cache.Entry{Data: []map[string]any{{"k": "v"}}}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		TotalCaches int `json:"total_caches"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/cache/summary", nil, &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, summary.TotalCaches)
}

func TestChatWithoutKey(t *testing.T) {
	srv := newTestServer(t)

	var health map[string]any
	resp := doJSON(t, http.MethodGet, srv.URL+"/chat/health", nil, &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, health["gemini_configured"])

	var errBody errorResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/chat", chatRequest{Message: "hi"}, &errBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, errBody.Detail, "GEMINI_API_KEY")
}
