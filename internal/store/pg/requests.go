package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mapable-api/internal/logger"
	"mapable-api/internal/store"
)

// RequestStore：服务请求的数据库实现
type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore { return &RequestStore{db: db} }

func (s *RequestStore) Initialize() error { return nil }

const requestCols = "request_id, request_type, location_id, latitude, longitude, address, description, priority, status, requester_name, requester_email, created_at, updated_at"

func scanRequest(scan func(dest ...any) error) (store.ServiceRequest, error) {
	var r store.ServiceRequest
	var locID, email sql.NullString
	err := scan(&r.RequestID, &r.RequestType, &locID, &r.Latitude, &r.Longitude,
		&r.Address, &r.Description, &r.Priority, &r.Status,
		&r.RequesterName, &email, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if locID.Valid {
		r.LocationID = &locID.String
	}
	if email.Valid {
		r.RequesterEmail = &email.String
	}
	return r, nil
}

func (s *RequestStore) CreateRequest(ctx context.Context, in store.RequestInput) (store.ServiceRequest, error) {
	reqType := strings.ToLower(in.RequestType)
	if !store.OneOf(reqType, store.RequestTypes) {
		return store.ServiceRequest{}, store.Invalidf("request_type",
			"Invalid request_type. Must be one of: %s", strings.Join(store.RequestTypes, ", "))
	}
	priority := strings.ToLower(in.Priority)
	if priority == "" {
		priority = "medium"
	}
	if !store.OneOf(priority, store.Priorities) {
		return store.ServiceRequest{}, store.Invalidf("priority",
			"Invalid priority. Must be one of: %s", strings.Join(store.Priorities, ", "))
	}
	now := time.Now()
	r := store.ServiceRequest{
		RequestID:      uuid.NewString(),
		RequestType:    reqType,
		LocationID:     in.LocationID,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Address:        in.Address,
		Description:    in.Description,
		Priority:       priority,
		Status:         "pending",
		RequesterName:  in.RequesterName,
		RequesterEmail: in.RequesterEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _ma_service_requests(`+requestCols+`)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.RequestID, r.RequestType, r.LocationID, r.Latitude, r.Longitude,
		r.Address, r.Description, r.Priority, r.Status,
		r.RequesterName, r.RequesterEmail, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return store.ServiceRequest{}, err
	}
	logger.L().Debug("db_request_created", "request_id", r.RequestID, "type", r.RequestType)
	return r, nil
}

func (s *RequestStore) Requests(ctx context.Context, f store.RequestFilter) ([]store.ServiceRequest, error) {
	where := []string{}
	args := []any{}
	add := func(col, v string) {
		if v != "" {
			args = append(args, strings.ToLower(v))
			where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
		}
	}
	add("status", f.Status)
	add("request_type", f.RequestType)
	add("priority", f.Priority)
	q := "SELECT " + requestCols + " FROM _ma_service_requests"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]store.ServiceRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RequestStore) RequestByID(ctx context.Context, requestID string) (store.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+requestCols+" FROM _ma_service_requests WHERE request_id=$1", requestID)
	r, err := scanRequest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ServiceRequest{}, store.NotFoundf("service request", requestID)
	}
	return r, err
}

func (s *RequestStore) UpdateStatus(ctx context.Context, requestID, status string) (store.ServiceRequest, error) {
	status = strings.ToLower(status)
	if !store.OneOf(status, store.Statuses) {
		return store.ServiceRequest{}, store.Invalidf("status",
			"Invalid status. Must be one of: %s", strings.Join(store.Statuses, ", "))
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE _ma_service_requests SET status=$1, updated_at=$2 WHERE request_id=$3",
		status, time.Now(), requestID)
	if err != nil {
		return store.ServiceRequest{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ServiceRequest{}, store.NotFoundf("service request", requestID)
	}
	logger.L().Debug("db_request_status_updated", "request_id", requestID, "status", status)
	return s.RequestByID(ctx, requestID)
}

func (s *RequestStore) DeleteRequest(ctx context.Context, requestID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM _ma_service_requests WHERE request_id=$1", requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("service request", requestID)
	}
	logger.L().Debug("db_request_deleted", "request_id", requestID)
	return nil
}

func (s *RequestStore) RequestStats(ctx context.Context) (store.RequestStats, error) {
	st := store.RequestStats{
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
	}
	rows, err := s.db.QueryContext(ctx, "SELECT status, request_type, priority FROM _ma_service_requests")
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, reqType, priority string
		if err := rows.Scan(&status, &reqType, &priority); err != nil {
			return st, err
		}
		st.Total++
		st.ByStatus[status]++
		st.ByType[reqType]++
		st.ByPriority[priority]++
	}
	return st, rows.Err()
}
