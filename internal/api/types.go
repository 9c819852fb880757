package api

import (
	"mapable-api/internal/restrooms"
	"mapable-api/internal/store"

	"mapable-api/internal/chat"
)

// 文档注释：对外序列化模型（响应包络）
// 背景：列表统一携带 total 便于前端直接展示；字段稳定，新增需评估前端依赖。

type reviewsResponse struct {
	Total   int            `json:"total"`
	Reviews []store.Review `json:"reviews"`
}

type locationsResponse struct {
	Total     int              `json:"total"`
	Locations []store.Location `json:"locations"`
}

type nearbyLocationsResponse struct {
	Total     int                    `json:"total"`
	Locations []store.NearbyLocation `json:"locations"`
}

// locationReviews：地点及其全部评论
type locationReviews struct {
	LocationID    string         `json:"location_id"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	ReviewCount   int            `json:"review_count"`
	AverageRating *float64       `json:"average_rating"`
	Reviews       []store.Review `json:"reviews"`
}

type requestsResponse struct {
	Total    int                    `json:"total"`
	Requests []store.ServiceRequest `json:"requests"`
}

type restroomsResponse struct {
	Total     int                  `json:"total"`
	Restrooms []restrooms.Restroom `json:"restrooms"`
}

// statusUpdateBody：状态流转请求体；notes 仅透传记录用途
type statusUpdateBody struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

type chatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []chat.Message `json:"conversation_history"`
}

// deleteResponse：删除确认
type deleteResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ReviewID  string `json:"review_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
