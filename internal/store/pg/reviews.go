// 包 pg：存储接口的 PostgreSQL 实现
// 背景：快照文件缺乏写入原子性，这里提供事务型后端作为可选替代；
// 聚合仍保持"写入时全量重算"的口径，不做增量维护。
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"mapable-api/internal/geo"
	"mapable-api/internal/logger"
	"mapable-api/internal/store"
)

// ReviewStore：评论与派生地点的数据库实现
type ReviewStore struct {
	db *sql.DB
}

func NewReviewStore(db *sql.DB) *ReviewStore { return &ReviewStore{db: db} }

// Initialize：建表由 migrate.EnsureSchema 在入口完成，这里无事可做
func (s *ReviewStore) Initialize() error { return nil }

func scanReview(scan func(dest ...any) error) (store.Review, error) {
	var r store.Review
	var tags string
	err := scan(&r.ReviewID, &r.LocationID, &r.Latitude, &r.Longitude,
		&r.Title, &r.Content, &r.Rating, &r.Author, &tags,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil || r.Tags == nil {
		r.Tags = []string{}
	}
	return r, nil
}

const reviewCols = "review_id, location_id, latitude, longitude, title, content, rating, author, tags, created_at, updated_at"

// refreshLocation：对单一地点重算聚合；无评论时删除整行
func (s *ReviewStore) refreshLocation(ctx context.Context, tx *sql.Tx, locationID string, lat, lon float64, now time.Time) error {
	var count int
	var avg sql.NullFloat64
	row := tx.QueryRowContext(ctx,
		"SELECT COUNT(1), AVG(rating::float) FROM _ma_reviews WHERE location_id=$1", locationID)
	if err := row.Scan(&count, &avg); err != nil {
		return err
	}
	if count == 0 {
		_, err := tx.ExecContext(ctx, "DELETE FROM _ma_locations WHERE location_id=$1", locationID)
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO _ma_locations(location_id, latitude, longitude, created_at, review_count, average_rating)
        VALUES($1,$2,$3,$4,$5,$6)
        ON CONFLICT (location_id) DO UPDATE SET review_count=EXCLUDED.review_count, average_rating=EXCLUDED.average_rating`,
		locationID, lat, lon, now, count, avg.Float64)
	return err
}

func (s *ReviewStore) CreateReview(ctx context.Context, in store.ReviewInput) (store.Review, error) {
	now := time.Now()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Review{}, err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, `INSERT INTO _ma_reviews(`+reviewCols+`)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ReviewID, r.LocationID, r.Latitude, r.Longitude, r.Title, r.Content,
		r.Rating, r.Author, string(tagsJSON), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return store.Review{}, err
	}
	if err := s.refreshLocation(ctx, tx, r.LocationID, r.Latitude, r.Longitude, now); err != nil {
		return store.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Review{}, err
	}
	logger.L().Debug("db_review_created", "review_id", r.ReviewID, "location_id", r.LocationID)
	return r, nil
}

func (s *ReviewStore) queryReviews(ctx context.Context, where string, args ...any) ([]store.Review, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+reviewCols+" FROM _ma_reviews"+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]store.Review, 0)
	for rows.Next() {
		r, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ReviewStore) Reviews(ctx context.Context) ([]store.Review, error) {
	return s.queryReviews(ctx, " ORDER BY created_at")
}

func (s *ReviewStore) ReviewsByLocation(ctx context.Context, locationID string) ([]store.Review, error) {
	return s.queryReviews(ctx, " WHERE location_id=$1 ORDER BY created_at", locationID)
}

func (s *ReviewStore) ReviewByID(ctx context.Context, reviewID string) (store.Review, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+reviewCols+" FROM _ma_reviews WHERE review_id=$1", reviewID)
	r, err := scanReview(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Review{}, store.NotFoundf("review", reviewID)
	}
	return r, err
}

func (s *ReviewStore) DeleteReview(ctx context.Context, reviewID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var locationID string
	row := tx.QueryRowContext(ctx, "SELECT location_id FROM _ma_reviews WHERE review_id=$1", reviewID)
	if err := row.Scan(&locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.NotFoundf("review", reviewID)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM _ma_reviews WHERE review_id=$1", reviewID); err != nil {
		return err
	}
	if err := s.refreshLocation(ctx, tx, locationID, 0, 0, time.Now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("db_review_deleted", "review_id", reviewID, "location_id", locationID)
	return nil
}

func scanLocation(scan func(dest ...any) error) (store.Location, error) {
	var l store.Location
	var avg sql.NullFloat64
	err := scan(&l.LocationID, &l.Latitude, &l.Longitude, &l.CreatedAt, &l.ReviewCount, &avg)
	if err != nil {
		return l, err
	}
	if avg.Valid {
		l.AverageRating = &avg.Float64
	}
	return l, nil
}

const locationCols = "location_id, latitude, longitude, created_at, review_count, average_rating"

func (s *ReviewStore) Locations(ctx context.Context) ([]store.Location, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+locationCols+" FROM _ma_locations ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]store.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *ReviewStore) LocationByID(ctx context.Context, locationID string) (store.Location, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+locationCols+" FROM _ma_locations WHERE location_id=$1", locationID)
	l, err := scanLocation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Location{}, store.NotFoundf("location", locationID)
	}
	return l, err
}

// NearbyLocations：与文件实现同口径——全集取回后线性 haversine 过滤
// 约束：不引入 PostGIS，规模上线性扫描足够且两后端行为一致
func (s *ReviewStore) NearbyLocations(ctx context.Context, lat, lon, radiusMiles float64) ([]store.NearbyLocation, error) {
	locations, err := s.Locations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]store.NearbyLocation, 0)
	for _, l := range locations {
		d := geo.Miles(lat, lon, l.Latitude, l.Longitude)
		if d <= radiusMiles {
			out = append(out, store.NearbyLocation{Location: l, DistanceMiles: geo.RoundMiles(d)})
		}
	}
	return out, nil
}

func (s *ReviewStore) ReviewStats(ctx context.Context) (store.ReviewStats, error) {
	st := store.ReviewStats{TopReviewedLocations: []store.TopLocation{}}
	var avg sql.NullFloat64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1), AVG(rating::float) FROM _ma_reviews")
	if err := row.Scan(&st.TotalReviews, &avg); err != nil {
		return st, err
	}
	if avg.Valid {
		st.AverageRating = &avg.Float64
	}
	row = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM _ma_locations")
	if err := row.Scan(&st.TotalLocations); err != nil {
		return st, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT location_id, review_count, average_rating FROM _ma_locations ORDER BY review_count DESC LIMIT 5")
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var t store.TopLocation
		var a sql.NullFloat64
		if err := rows.Scan(&t.LocationID, &t.ReviewCount, &a); err != nil {
			return st, err
		}
		if a.Valid {
			t.AverageRating = &a.Float64
		}
		st.TopReviewedLocations = append(st.TopReviewedLocations, t)
	}
	return st, rows.Err()
}
