package file

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"mapable-api/internal/geo"
	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
	"mapable-api/internal/store"
)

// 快照列集；与接口序列化字段保持同序
var (
	reviewColumns = []string{
		"review_id", "location_id", "latitude", "longitude",
		"title", "content", "rating", "author", "tags",
		"created_at", "updated_at",
	}
	locationColumns = []string{
		"location_id", "latitude", "longitude",
		"created_at", "review_count", "average_rating",
	}
)

// ReviewStore：评论与派生地点的快照实现
type ReviewStore struct {
	mu        sync.Mutex
	reviews   table
	locations table
}

func NewReviewStore(dataDir string) *ReviewStore {
	return &ReviewStore{
		reviews:   table{path: filepath.Join(dataDir, "reviews.csv"), columns: reviewColumns},
		locations: table{path: filepath.Join(dataDir, "locations.csv"), columns: locationColumns},
	}
}

// Initialize：幂等创建两个空快照
func (s *ReviewStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reviews.ensure(); err != nil {
		return err
	}
	return s.locations.ensure()
}

func encodeReview(r store.Review) []string {
	tags, _ := json.Marshal(r.Tags)
	return []string{
		r.ReviewID, r.LocationID,
		strconv.FormatFloat(r.Latitude, 'f', -1, 64),
		strconv.FormatFloat(r.Longitude, 'f', -1, 64),
		r.Title, r.Content,
		strconv.Itoa(r.Rating), r.Author, string(tags),
		r.CreatedAt.Format(time.RFC3339Nano),
		r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeReview(row []string) store.Review {
	var r store.Review
	r.ReviewID = row[0]
	r.LocationID = row[1]
	r.Latitude, _ = strconv.ParseFloat(row[2], 64)
	r.Longitude, _ = strconv.ParseFloat(row[3], 64)
	r.Title = row[4]
	r.Content = row[5]
	r.Rating, _ = strconv.Atoi(row[6])
	r.Author = row[7]
	if err := json.Unmarshal([]byte(row[8]), &r.Tags); err != nil || r.Tags == nil {
		r.Tags = []string{}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, row[9])
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, row[10])
	return r
}

func encodeLocation(l store.Location) []string {
	avg := ""
	if l.AverageRating != nil {
		avg = strconv.FormatFloat(*l.AverageRating, 'f', -1, 64)
	}
	return []string{
		l.LocationID,
		strconv.FormatFloat(l.Latitude, 'f', -1, 64),
		strconv.FormatFloat(l.Longitude, 'f', -1, 64),
		l.CreatedAt.Format(time.RFC3339Nano),
		strconv.Itoa(l.ReviewCount),
		avg,
	}
}

func decodeLocation(row []string) store.Location {
	var l store.Location
	l.LocationID = row[0]
	l.Latitude, _ = strconv.ParseFloat(row[1], 64)
	l.Longitude, _ = strconv.ParseFloat(row[2], 64)
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, row[3])
	l.ReviewCount, _ = strconv.Atoi(row[4])
	if row[5] != "" {
		v, err := strconv.ParseFloat(row[5], 64)
		if err == nil {
			l.AverageRating = &v
		}
	}
	return l
}

func (s *ReviewStore) loadReviews() ([]store.Review, error) {
	rows, err := s.reviews.load()
	if err != nil {
		return nil, err
	}
	out := make([]store.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeReview(row))
	}
	return out, nil
}

func (s *ReviewStore) loadLocations() ([]store.Location, error) {
	rows, err := s.locations.load()
	if err != nil {
		return nil, err
	}
	out := make([]store.Location, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeLocation(row))
	}
	return out, nil
}

func (s *ReviewStore) saveReviews(reviews []store.Review) error {
	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, encodeReview(r))
	}
	return s.reviews.save(rows)
}

func (s *ReviewStore) saveLocations(locations []store.Location) error {
	rows := make([][]string, 0, len(locations))
	for _, l := range locations {
		rows = append(rows, encodeLocation(l))
	}
	return s.locations.save(rows)
}

// recomputeLocation：在内存中的评论全集上重算某地点的聚合
// 不变量：计数等于该 id 下评论数，均值为其评分均值；计数为 0 时整行移除
func recomputeLocation(locations []store.Location, reviews []store.Review, locationID string, lat, lon float64, now time.Time) []store.Location {
	count := 0
	sum := 0
	for _, r := range reviews {
		if r.LocationID == locationID {
			count++
			sum += r.Rating
		}
	}
	if count == 0 {
		out := locations[:0]
		for _, l := range locations {
			if l.LocationID != locationID {
				out = append(out, l)
			}
		}
		return out
	}
	avg := float64(sum) / float64(count)
	for i := range locations {
		if locations[i].LocationID == locationID {
			locations[i].ReviewCount = count
			locations[i].AverageRating = &avg
			return locations
		}
	}
	return append(locations, store.Location{
		LocationID:    locationID,
		Latitude:      lat,
		Longitude:     lon,
		CreatedAt:     now,
		ReviewCount:   count,
		AverageRating: &avg,
	})
}

// CreateReview：追加评论并同步维护地点聚合
func (s *ReviewStore) CreateReview(_ context.Context, in store.ReviewInput) (store.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.loadReviews()
	if err != nil {
		return store.Review{}, err
	}
	locations, err := s.loadLocations()
	if err != nil {
		return store.Review{}, err
	}
	now := time.Now()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	r := store.Review{
		ReviewID:   uuid.NewString(),
		LocationID: in.LocationID,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Title:      in.Title,
		Content:    in.Content,
		Rating:     in.Rating,
		Author:     in.Author,
		Tags:       tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	reviews = append(reviews, r)
	if err := s.saveReviews(reviews); err != nil {
		return store.Review{}, err
	}
	locations = recomputeLocation(locations, reviews, in.LocationID, in.Latitude, in.Longitude, now)
	if err := s.saveLocations(locations); err != nil {
		return store.Review{}, err
	}
	metrics.StoreMutationsTotal.WithLabelValues("reviews", "insert").Inc()
	logger.L().Debug("review_created", "review_id", r.ReviewID, "location_id", r.LocationID)
	return r, nil
}

func (s *ReviewStore) Reviews(_ context.Context) ([]store.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadReviews()
}

func (s *ReviewStore) ReviewsByLocation(_ context.Context, locationID string) ([]store.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadReviews()
	if err != nil {
		return nil, err
	}
	out := make([]store.Review, 0)
	for _, r := range reviews {
		if r.LocationID == locationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ReviewStore) ReviewByID(_ context.Context, reviewID string) (store.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadReviews()
	if err != nil {
		return store.Review{}, err
	}
	for _, r := range reviews {
		if r.ReviewID == reviewID {
			return r, nil
		}
	}
	return store.Review{}, store.NotFoundf("review", reviewID)
}

// DeleteReview：删除评论并重算（或移除）对应地点
func (s *ReviewStore) DeleteReview(_ context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews, err := s.loadReviews()
	if err != nil {
		return err
	}
	idx := -1
	for i, r := range reviews {
		if r.ReviewID == reviewID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.NotFoundf("review", reviewID)
	}
	locationID := reviews[idx].LocationID
	reviews = append(reviews[:idx], reviews[idx+1:]...)
	if err := s.saveReviews(reviews); err != nil {
		return err
	}
	locations, err := s.loadLocations()
	if err != nil {
		return err
	}
	locations = recomputeLocation(locations, reviews, locationID, 0, 0, time.Now())
	if err := s.saveLocations(locations); err != nil {
		return err
	}
	metrics.StoreMutationsTotal.WithLabelValues("reviews", "delete").Inc()
	logger.L().Debug("review_deleted", "review_id", reviewID, "location_id", locationID)
	return nil
}

func (s *ReviewStore) Locations(_ context.Context) ([]store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocations()
}

func (s *ReviewStore) LocationByID(_ context.Context, locationID string) (store.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locations, err := s.loadLocations()
	if err != nil {
		return store.Location{}, err
	}
	for _, l := range locations {
		if l.LocationID == locationID {
			return l, nil
		}
	}
	return store.Location{}, store.NotFoundf("location", locationID)
}

// NearbyLocations：全表线性扫描 + haversine 过滤（含边界：距离 ≤ 半径）
func (s *ReviewStore) NearbyLocations(_ context.Context, lat, lon, radiusMiles float64) ([]store.NearbyLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locations, err := s.loadLocations()
	if err != nil {
		return nil, err
	}
	out := make([]store.NearbyLocation, 0)
	for _, l := range locations {
		d := geo.Miles(lat, lon, l.Latitude, l.Longitude)
		if d <= radiusMiles {
			out = append(out, store.NearbyLocation{
				Location:      l,
				DistanceMiles: geo.RoundMiles(d),
			})
		}
	}
	return out, nil
}

// ReviewStats：全量统计——总数、均分与评论最多的前五个地点
func (s *ReviewStore) ReviewStats(_ context.Context) (store.ReviewStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews, err := s.loadReviews()
	if err != nil {
		return store.ReviewStats{}, err
	}
	locations, err := s.loadLocations()
	if err != nil {
		return store.ReviewStats{}, err
	}
	st := store.ReviewStats{
		TotalReviews:         len(reviews),
		TotalLocations:       len(locations),
		TopReviewedLocations: []store.TopLocation{},
	}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg := float64(sum) / float64(len(reviews))
		st.AverageRating = &avg
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].ReviewCount > locations[j].ReviewCount
	})
	for i, l := range locations {
		if i == 5 {
			break
		}
		st.TopReviewedLocations = append(st.TopReviewedLocations, store.TopLocation{
			LocationID:    l.LocationID,
			ReviewCount:   l.ReviewCount,
			AverageRating: l.AverageRating,
		})
	}
	return st, nil
}
