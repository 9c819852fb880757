// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mapable-api/internal/cache"
	"mapable-api/internal/chat"
	"mapable-api/internal/config"
	"mapable-api/internal/geoip"
	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
	"mapable-api/internal/restrooms"
	"mapable-api/internal/store"
)

// Deps：路由依赖集合，由主入口装配后注入
// 背景：原实现把存储与缓存放在模块级变量上，这里全部显式传入，测试可独立构建
type Deps struct {
	Settings  config.Settings
	Reviews   store.ReviewStore
	Requests  store.RequestStore
	Restrooms *restrooms.Service
	Registry  *cache.Registry
	Chat      *chat.Service
	Locator   *geoip.Locator
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr：领域错误到状态码的统一映射
// NotFound→404、枚举校验失败→400、远端模型错误→500（带诊断细节）、其余→500
func writeErr(w http.ResponseWriter, err error) {
	var ve *store.ValidationError
	var rme *chat.RemoteModelError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: ve.Message})
	case errors.As(err, &rme):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: rme.Detail})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("Internal server error: %v", err)})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: fmt.Sprintf("Invalid request body: %v", err)})
		return false
	}
	return true
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// track：按端点计数并观测时延
func track(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(endpoint).Inc()
		h(w, r)
		metrics.RequestDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}
}

// searchCenter：解析附近查询的中心点
// 背景：未携带经纬度时，若配置了 geoip 则按来访 IP 定位；仍无结果报 400
func (d *Deps) searchCenter(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	lat, hasLat := queryFloat(r, "latitude")
	lon, hasLon := queryFloat(r, "longitude")
	if hasLat && hasLon {
		return lat, lon, true
	}
	if ip := getClientIP(r); ip != "" {
		if glat, glon, located := d.Locator.Locate(ip); located {
			logger.L().Debug("nearby_geoip_center", "ip", ip, "lat", glat, "lon", glon)
			return glat, glon, true
		}
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "latitude and longitude are required"})
	return 0, 0, false
}

// BuildRoutes：构建独立 ServeMux，由主入口挂载到 API 前缀
func BuildRoutes(d *Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", track("root", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Welcome to " + d.Settings.AppName,
			"version": d.Settings.AppVersion,
			"docs":    d.Settings.APIBase,
		})
	}))

	mux.HandleFunc("GET /health", track("health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}))

	mux.HandleFunc("POST /echo", track("echo", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		writeJSON(w, http.StatusOK, body)
	}))

	registerReviewRoutes(mux, d)
	registerRequestRoutes(mux, d)
	registerRestroomRoutes(mux, d)
	registerCacheRoutes(mux, d)
	registerChatRoutes(mux, d)

	return mux
}

func registerReviewRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("POST /reviews", track("reviews_create", func(w http.ResponseWriter, r *http.Request) {
		var in store.ReviewInput
		if !decodeBody(w, r, &in) {
			return
		}
		review, err := d.Reviews.CreateReview(r.Context(), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	}))

	mux.HandleFunc("GET /reviews", track("reviews_list", func(w http.ResponseWriter, r *http.Request) {
		reviews, err := d.Reviews.Reviews(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reviewsResponse{Total: len(reviews), Reviews: reviews})
	}))

	mux.HandleFunc("GET /reviews/location/{location_id}", track("reviews_by_location", func(w http.ResponseWriter, r *http.Request) {
		reviews, err := d.Reviews.ReviewsByLocation(r.Context(), r.PathValue("location_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reviewsResponse{Total: len(reviews), Reviews: reviews})
	}))

	mux.HandleFunc("GET /reviews/id/{review_id}", track("reviews_get", func(w http.ResponseWriter, r *http.Request) {
		review, err := d.Reviews.ReviewByID(r.Context(), r.PathValue("review_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	}))

	// CSV 导出：列序与快照文件保持一致；空表返回 404
	mux.HandleFunc("GET /reviews/export", track("reviews_export", func(w http.ResponseWriter, r *http.Request) {
		reviews, err := d.Reviews.Reviews(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		if len(reviews) == 0 {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "No reviews found"})
			return
		}
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		_ = cw.Write([]string{"review_id", "location_id", "latitude", "longitude",
			"title", "content", "rating", "author", "tags", "created_at", "updated_at"})
		for _, rv := range reviews {
			tags, _ := json.Marshal(rv.Tags)
			_ = cw.Write([]string{
				rv.ReviewID, rv.LocationID,
				strconv.FormatFloat(rv.Latitude, 'f', -1, 64),
				strconv.FormatFloat(rv.Longitude, 'f', -1, 64),
				rv.Title, rv.Content, strconv.Itoa(rv.Rating), rv.Author, string(tags),
				rv.CreatedAt.Format(time.RFC3339Nano), rv.UpdatedAt.Format(time.RFC3339Nano),
			})
		}
		cw.Flush()
		w.Header().Set("content-type", "text/csv")
		w.Header().Set("content-disposition", "attachment; filename=reviews.csv")
		_, _ = w.Write(buf.Bytes())
	}))

	mux.HandleFunc("GET /reviews/stats", track("reviews_stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Reviews.ReviewStats(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}))

	mux.HandleFunc("DELETE /reviews/{review_id}", track("reviews_delete", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("review_id")
		if err := d.Reviews.DeleteReview(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{
			Status:   "success",
			Message:  fmt.Sprintf("Review '%s' deleted", id),
			ReviewID: id,
		})
	}))

	mux.HandleFunc("GET /locations", track("locations_list", func(w http.ResponseWriter, r *http.Request) {
		locations, err := d.Reviews.Locations(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, locationsResponse{Total: len(locations), Locations: locations})
	}))

	mux.HandleFunc("GET /locations/nearby", track("locations_nearby", func(w http.ResponseWriter, r *http.Request) {
		lat, lon, ok := d.searchCenter(w, r)
		if !ok {
			return
		}
		radius := 5.0
		if v, has := queryFloat(r, "radius_miles"); has {
			radius = v
		}
		nearby, err := d.Reviews.NearbyLocations(r.Context(), lat, lon, radius)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nearbyLocationsResponse{Total: len(nearby), Locations: nearby})
	}))

	mux.HandleFunc("GET /locations/{location_id}", track("locations_get", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("location_id")
		loc, err := d.Reviews.LocationByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		reviews, err := d.Reviews.ReviewsByLocation(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, locationReviews{
			LocationID:    loc.LocationID,
			Latitude:      loc.Latitude,
			Longitude:     loc.Longitude,
			ReviewCount:   loc.ReviewCount,
			AverageRating: loc.AverageRating,
			Reviews:       reviews,
		})
	}))
}

func registerRequestRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("POST /service-requests", track("requests_create", func(w http.ResponseWriter, r *http.Request) {
		var in store.RequestInput
		if !decodeBody(w, r, &in) {
			return
		}
		req, err := d.Requests.CreateRequest(r.Context(), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}))

	mux.HandleFunc("GET /service-requests", track("requests_list", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		requests, err := d.Requests.Requests(r.Context(), store.RequestFilter{
			Status:      q.Get("status"),
			RequestType: q.Get("request_type"),
			Priority:    q.Get("priority"),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, requestsResponse{Total: len(requests), Requests: requests})
	}))

	mux.HandleFunc("GET /service-requests/stats/summary", track("requests_stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Requests.RequestStats(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}))

	// 调试用全量导出：三张表一次取回，datetime 已是 ISO 序列化
	mux.HandleFunc("GET /service-requests/db/all", track("requests_dump", func(w http.ResponseWriter, r *http.Request) {
		requests, err := d.Requests.Requests(r.Context(), store.RequestFilter{})
		if err != nil {
			writeErr(w, err)
			return
		}
		reviews, err := d.Reviews.Reviews(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		locations, err := d.Reviews.Locations(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"service_requests": requests,
			"reviews":          reviews,
			"locations":        locations,
		})
	}))

	mux.HandleFunc("GET /service-requests/{request_id}", track("requests_get", func(w http.ResponseWriter, r *http.Request) {
		req, err := d.Requests.RequestByID(r.Context(), r.PathValue("request_id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}))

	mux.HandleFunc("PATCH /service-requests/{request_id}/status", track("requests_update_status", func(w http.ResponseWriter, r *http.Request) {
		var body statusUpdateBody
		if !decodeBody(w, r, &body) {
			return
		}
		req, err := d.Requests.UpdateStatus(r.Context(), r.PathValue("request_id"), body.Status)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}))

	mux.HandleFunc("DELETE /service-requests/{request_id}", track("requests_delete", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("request_id")
		if err := d.Requests.DeleteRequest(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{
			Status:    "success",
			Message:   fmt.Sprintf("Service request '%s' deleted", id),
			RequestID: id,
		})
	}))
}

func registerRestroomRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /restrooms", track("restrooms_list", func(w http.ResponseWriter, r *http.Request) {
		items := d.Restrooms.List(r.Context())
		writeJSON(w, http.StatusOK, restroomsResponse{Total: len(items), Restrooms: items})
	}))

	mux.HandleFunc("GET /restrooms/nearby", track("restrooms_nearby", func(w http.ResponseWriter, r *http.Request) {
		lat, lon, ok := d.searchCenter(w, r)
		if !ok {
			return
		}
		radius := 1.0
		if v, has := queryFloat(r, "radius_miles"); has {
			radius = v
		}
		items := d.Restrooms.Nearby(r.Context(), lat, lon, radius)
		writeJSON(w, http.StatusOK, restroomsResponse{Total: len(items), Restrooms: items})
	}))

	mux.HandleFunc("GET /restrooms/neighborhood/{neighborhood}", track("restrooms_neighborhood", func(w http.ResponseWriter, r *http.Request) {
		items := d.Restrooms.ByNeighborhood(r.Context(), r.PathValue("neighborhood"))
		writeJSON(w, http.StatusOK, restroomsResponse{Total: len(items), Restrooms: items})
	}))
}

func registerCacheRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("GET /cache/database", track("cache_database", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"timestamp": time.Now(),
			"caches":    d.Registry.Caches(),
			"summary":   d.Registry.Summary(),
		})
	}))

	mux.HandleFunc("GET /cache/database/{cache_key}", track("cache_get", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("cache_key")
		entry, ok := d.Registry.Get(key)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Detail: fmt.Sprintf("Cache '%s' not found. Available caches: %v", key, d.Registry.Keys()),
			})
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}))

	mux.HandleFunc("GET /cache/summary", track("cache_summary", func(w http.ResponseWriter, r *http.Request) {
		summary := d.Registry.Summary()
		writeJSON(w, http.StatusOK, map[string]any{
			"timestamp":    time.Now(),
			"total_caches": len(summary),
			"caches":       summary,
		})
	}))

	mux.HandleFunc("POST /cache/register/{cache_key}", track("cache_register", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("cache_key")
		var entry cache.Entry
		if !decodeBody(w, r, &entry) {
			return
		}
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now()
		}
		d.Registry.Register(key, entry)
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "success",
			"message":   fmt.Sprintf("Cache '%s' registered successfully", key),
			"cache_key": key,
		})
	}))
}

func registerChatRoutes(mux *http.ServeMux, d *Deps) {
	mux.HandleFunc("POST /chat", track("chat", func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		if !decodeBody(w, r, &body) {
			return
		}
		result, err := d.Chat.Chat(r.Context(), body.Message, body.ConversationHistory)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}))

	mux.HandleFunc("GET /chat/health", track("chat_health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "healthy",
			"gemini_configured": d.Chat.Configured(),
			"model":             d.Chat.Model(),
		})
	}))
}
