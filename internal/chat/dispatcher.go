package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mapable-api/internal/metrics"
	"mapable-api/internal/store"
)

// Dispatcher：远端模型函数调用到本地存储操作的封闭映射
// 背景：远端传回的参数是松散的键值表；这里做防御性类型转换后调用
// 对应存储操作，不做反射式任意调用。
// 约束：任何失败以 error 返回，由会话层折叠为诊断文本，绝不 panic。
type Dispatcher struct {
	reviews  store.ReviewStore
	requests store.RequestStore
}

func NewDispatcher(reviews store.ReviewStore, requests store.RequestStore) *Dispatcher {
	return &Dispatcher{reviews: reviews, requests: requests}
}

// Known：操作名是否在目录内
func (d *Dispatcher) Known(name string) bool {
	switch name {
	case "create_service_request", "create_review", "search_locations", "get_location_reviews":
		return true
	}
	return false
}

// Dispatch：按名分发；结果是可直接回传给模型的松散结构
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	var result map[string]any
	var err error
	switch name {
	case "create_service_request":
		result, err = d.createServiceRequest(ctx, args)
	case "create_review":
		result, err = d.createReview(ctx, args)
	case "search_locations":
		result, err = d.searchLocations(ctx, args)
	case "get_location_reviews":
		result, err = d.getLocationReviews(ctx, args)
	default:
		err = fmt.Errorf("unknown function %q", name)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ChatFunctionCallsTotal.WithLabelValues(name, outcome).Inc()
	return result, err
}

// 参数转换助手：宽容接受 JSON 解码产物的各种数值表示

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string", key)
	}
	return s, nil
}

func optString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func argFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("argument %q is not a number", key)
	}
	return f, nil
}

func optFloat(args map[string]any, key string, def float64) float64 {
	if v, ok := args[key]; ok && v != nil {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

func argInt(args map[string]any, key string) (int, error) {
	f, err := argFloat(args, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func optStrings(args map[string]any, key string) []string {
	out := []string{}
	v, ok := args[key]
	if !ok || v == nil {
		return out
	}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Dispatcher) createServiceRequest(ctx context.Context, args map[string]any) (map[string]any, error) {
	reqType, err := argString(args, "request_type")
	if err != nil {
		return nil, err
	}
	lat, err := argFloat(args, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := argFloat(args, "longitude")
	if err != nil {
		return nil, err
	}
	address, err := argString(args, "address")
	if err != nil {
		return nil, err
	}
	description, err := argString(args, "description")
	if err != nil {
		return nil, err
	}
	name, err := argString(args, "requester_name")
	if err != nil {
		return nil, err
	}
	in := store.RequestInput{
		RequestType:   reqType,
		Latitude:      lat,
		Longitude:     lon,
		Address:       address,
		Description:   description,
		Priority:      optString(args, "priority"),
		RequesterName: name,
	}
	if email := optString(args, "requester_email"); email != "" {
		in.RequesterEmail = &email
	}
	r, err := d.requests.CreateRequest(ctx, in)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":    true,
		"request_id": r.RequestID,
		"message":    fmt.Sprintf("Service request created successfully with ID: %s", r.RequestID),
	}, nil
}

func (d *Dispatcher) createReview(ctx context.Context, args map[string]any) (map[string]any, error) {
	locationID, err := argString(args, "location_id")
	if err != nil {
		return nil, err
	}
	lat, err := argFloat(args, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := argFloat(args, "longitude")
	if err != nil {
		return nil, err
	}
	title, err := argString(args, "title")
	if err != nil {
		return nil, err
	}
	content, err := argString(args, "content")
	if err != nil {
		return nil, err
	}
	rating, err := argInt(args, "rating")
	if err != nil {
		return nil, err
	}
	author, err := argString(args, "author")
	if err != nil {
		return nil, err
	}
	r, err := d.reviews.CreateReview(ctx, store.ReviewInput{
		LocationID: locationID,
		Latitude:   lat,
		Longitude:  lon,
		Title:      title,
		Content:    content,
		Rating:     rating,
		Author:     author,
		Tags:       optStrings(args, "tags"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"review_id": r.ReviewID,
		"message":   fmt.Sprintf("Review created successfully with ID: %s", r.ReviewID),
	}, nil
}

func (d *Dispatcher) searchLocations(ctx context.Context, args map[string]any) (map[string]any, error) {
	_, hasLat := args["latitude"]
	_, hasLon := args["longitude"]
	if hasLat && hasLon {
		lat, err := argFloat(args, "latitude")
		if err != nil {
			return nil, err
		}
		lon, err := argFloat(args, "longitude")
		if err != nil {
			return nil, err
		}
		radius := optFloat(args, "radius_miles", 5.0)
		nearby, err := d.reviews.NearbyLocations(ctx, lat, lon, radius)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(nearby))
		for _, l := range nearby {
			items = append(items, map[string]any{
				"location_id":    l.LocationID,
				"latitude":       l.Latitude,
				"longitude":      l.Longitude,
				"review_count":   l.ReviewCount,
				"average_rating": l.AverageRating,
				"distance_miles": l.DistanceMiles,
			})
		}
		return map[string]any{"success": true, "locations": items, "count": len(items)}, nil
	}
	locations, err := d.reviews.Locations(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(locations))
	for _, l := range locations {
		items = append(items, map[string]any{
			"location_id":    l.LocationID,
			"latitude":       l.Latitude,
			"longitude":      l.Longitude,
			"review_count":   l.ReviewCount,
			"average_rating": l.AverageRating,
		})
	}
	return map[string]any{"success": true, "locations": items, "count": len(items)}, nil
}

func (d *Dispatcher) getLocationReviews(ctx context.Context, args map[string]any) (map[string]any, error) {
	locationID, err := argString(args, "location_id")
	if err != nil {
		return nil, err
	}
	reviews, err := d.reviews.ReviewsByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, map[string]any{
			"review_id":  r.ReviewID,
			"title":      r.Title,
			"content":    r.Content,
			"rating":     r.Rating,
			"author":     r.Author,
			"tags":       r.Tags,
			"created_at": r.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"success": true, "reviews": items, "count": len(items)}, nil
}
