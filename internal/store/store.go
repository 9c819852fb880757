// 包 store：评论/地点/服务请求的领域模型与存储接口
// 背景：默认实现为快照文件（store/file），可选 PostgreSQL（store/pg）；
// 两者遵循同一接口，Location 聚合在每次评论写入/删除时同步重算。
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Review：某地点的一条无障碍评测；创建后不可修改，仅可删除
type Review struct {
	ReviewID   string    `json:"review_id"`
	LocationID string    `json:"location_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	Author     string    `json:"author"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReviewInput：创建评论的入参
type ReviewInput struct {
	LocationID string   `json:"location_id"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Rating     int      `json:"rating"`
	Author     string   `json:"author"`
	Tags       []string `json:"tags"`
}

// Location：按 location_id 汇聚的派生实体
// 不变量：ReviewCount 等于该 id 下评论数；AverageRating 为其评分均值，
// 计数为 0 时整行被移除（因此 AverageRating 不会出现 0 计数的空值態）
type Location struct {
	LocationID    string    `json:"location_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	CreatedAt     time.Time `json:"created_at"`
	ReviewCount   int       `json:"review_count"`
	AverageRating *float64  `json:"average_rating"`
}

// NearbyLocation：附近查询结果，附带到查询中心的距离
type NearbyLocation struct {
	Location
	DistanceMiles float64 `json:"distance_miles"`
}

// ServiceRequest：无障碍设施改善请求
type ServiceRequest struct {
	RequestID      string    `json:"request_id"`
	RequestType    string    `json:"request_type"`
	LocationID     *string   `json:"location_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Address        string    `json:"address"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail *string   `json:"requester_email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RequestInput：创建服务请求的入参；Priority 为空时默认 medium
type RequestInput struct {
	RequestType    string  `json:"request_type"`
	LocationID     *string `json:"location_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Address        string  `json:"address"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority"`
	RequesterName  string  `json:"requester_name"`
	RequesterEmail *string `json:"requester_email"`
}

// RequestFilter：列表查询的等值过滤；空字符串表示不过滤
type RequestFilter struct {
	Status      string
	RequestType string
	Priority    string
}

// TopLocation：统计接口里的高频地点条目
type TopLocation struct {
	LocationID    string   `json:"location_id"`
	ReviewCount   int      `json:"review_count"`
	AverageRating *float64 `json:"average_rating"`
}

// ReviewStats：评论/地点总体统计
type ReviewStats struct {
	TotalReviews         int           `json:"total_reviews"`
	TotalLocations       int           `json:"total_locations"`
	AverageRating        *float64      `json:"average_rating"`
	TopReviewedLocations []TopLocation `json:"top_reviewed_locations"`
}

// RequestStats：服务请求按维度的频次统计
type RequestStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
}

// 枚举值集合；校验统一小写后进行
var (
	RequestTypes = []string{"ramp", "parking", "signage", "restroom", "other"}
	Priorities   = []string{"low", "medium", "high"}
	Statuses     = []string{"pending", "in-progress", "completed", "rejected"}
)

// ErrNotFound：按 id 查询未命中；HTTP 层映射为 404
var ErrNotFound = errors.New("not found")

// NotFoundf：带实体与 id 的未命中错误
func NotFoundf(kind, id string) error {
	return fmt.Errorf("%s '%s' %w", kind, id, ErrNotFound)
}

// ValidationError：非法枚举取值；HTTP 层映射为 400
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalidf：构造字段校验错误
func Invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OneOf：取值是否在集合内
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// ReviewStore：评论与派生地点的读写接口
type ReviewStore interface {
	Initialize() error
	CreateReview(ctx context.Context, in ReviewInput) (Review, error)
	Reviews(ctx context.Context) ([]Review, error)
	ReviewsByLocation(ctx context.Context, locationID string) ([]Review, error)
	ReviewByID(ctx context.Context, reviewID string) (Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
	Locations(ctx context.Context) ([]Location, error)
	LocationByID(ctx context.Context, locationID string) (Location, error)
	NearbyLocations(ctx context.Context, lat, lon, radiusMiles float64) ([]NearbyLocation, error)
	ReviewStats(ctx context.Context) (ReviewStats, error)
}

// RequestStore：服务请求的读写接口
type RequestStore interface {
	Initialize() error
	CreateRequest(ctx context.Context, in RequestInput) (ServiceRequest, error)
	Requests(ctx context.Context, f RequestFilter) ([]ServiceRequest, error)
	RequestByID(ctx context.Context, requestID string) (ServiceRequest, error)
	UpdateStatus(ctx context.Context, requestID, status string) (ServiceRequest, error)
	DeleteRequest(ctx context.Context, requestID string) error
	RequestStats(ctx context.Context) (RequestStats, error)
}
