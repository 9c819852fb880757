package file

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
	"mapable-api/internal/store"
)

var requestColumns = []string{
	"request_id", "request_type", "location_id", "latitude", "longitude",
	"address", "description", "priority", "status",
	"requester_name", "requester_email",
	"created_at", "updated_at",
}

// RequestStore：服务请求的快照实现
type RequestStore struct {
	mu sync.Mutex
	t  table
}

func NewRequestStore(dataDir string) *RequestStore {
	return &RequestStore{
		t: table{path: filepath.Join(dataDir, "service_requests.csv"), columns: requestColumns},
	}
}

func (s *RequestStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ensure()
}

func encodeRequest(r store.ServiceRequest) []string {
	locID := ""
	if r.LocationID != nil {
		locID = *r.LocationID
	}
	email := ""
	if r.RequesterEmail != nil {
		email = *r.RequesterEmail
	}
	return []string{
		r.RequestID, r.RequestType, locID,
		strconv.FormatFloat(r.Latitude, 'f', -1, 64),
		strconv.FormatFloat(r.Longitude, 'f', -1, 64),
		r.Address, r.Description, r.Priority, r.Status,
		r.RequesterName, email,
		r.CreatedAt.Format(time.RFC3339Nano),
		r.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func decodeRequest(row []string) store.ServiceRequest {
	var r store.ServiceRequest
	r.RequestID = row[0]
	r.RequestType = row[1]
	if row[2] != "" {
		v := row[2]
		r.LocationID = &v
	}
	r.Latitude, _ = strconv.ParseFloat(row[3], 64)
	r.Longitude, _ = strconv.ParseFloat(row[4], 64)
	r.Address = row[5]
	r.Description = row[6]
	r.Priority = row[7]
	r.Status = row[8]
	r.RequesterName = row[9]
	if row[10] != "" {
		v := row[10]
		r.RequesterEmail = &v
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, row[11])
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, row[12])
	return r
}

func (s *RequestStore) load() ([]store.ServiceRequest, error) {
	rows, err := s.t.load()
	if err != nil {
		return nil, err
	}
	out := make([]store.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeRequest(row))
	}
	return out, nil
}

func (s *RequestStore) save(requests []store.ServiceRequest) error {
	rows := make([][]string, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, encodeRequest(r))
	}
	return s.t.save(rows)
}

// CreateRequest：校验枚举后追加；初始状态固定为 pending
func (s *RequestStore) CreateRequest(_ context.Context, in store.RequestInput) (store.ServiceRequest, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return store.ServiceRequest{}, err
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
	requests = append(requests, r)
	if err := s.save(requests); err != nil {
		return store.ServiceRequest{}, err
	}
	metrics.StoreMutationsTotal.WithLabelValues("service_requests", "insert").Inc()
	logger.L().Debug("request_created", "request_id", r.RequestID, "type", r.RequestType)
	return r, nil
}

// Requests：等值过滤的全表扫描；过滤值大小写不敏感
func (s *RequestStore) Requests(_ context.Context, f store.RequestFilter) ([]store.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]store.ServiceRequest, 0, len(requests))
	for _, r := range requests {
		if f.Status != "" && r.Status != strings.ToLower(f.Status) {
			continue
		}
		if f.RequestType != "" && r.RequestType != strings.ToLower(f.RequestType) {
			continue
		}
		if f.Priority != "" && r.Priority != strings.ToLower(f.Priority) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RequestStore) RequestByID(_ context.Context, requestID string) (store.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return store.ServiceRequest{}, err
	}
	for _, r := range requests {
		if r.RequestID == requestID {
			return r, nil
		}
	}
	return store.ServiceRequest{}, store.NotFoundf("service request", requestID)
}

// UpdateStatus：显式状态流转；非法取值拒绝且不落盘
func (s *RequestStore) UpdateStatus(_ context.Context, requestID, status string) (store.ServiceRequest, error) {
	status = strings.ToLower(status)
	if !store.OneOf(status, store.Statuses) {
		return store.ServiceRequest{}, store.Invalidf("status",
			"Invalid status. Must be one of: %s", strings.Join(store.Statuses, ", "))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return store.ServiceRequest{}, err
	}
	for i := range requests {
		if requests[i].RequestID == requestID {
			requests[i].Status = status
			requests[i].UpdatedAt = time.Now()
			if err := s.save(requests); err != nil {
				return store.ServiceRequest{}, err
			}
			metrics.StoreMutationsTotal.WithLabelValues("service_requests", "update").Inc()
			logger.L().Debug("request_status_updated", "request_id", requestID, "status", status)
			return requests[i], nil
		}
	}
	return store.ServiceRequest{}, store.NotFoundf("service request", requestID)
}

func (s *RequestStore) DeleteRequest(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return err
	}
	for i := range requests {
		if requests[i].RequestID == requestID {
			requests = append(requests[:i], requests[i+1:]...)
			if err := s.save(requests); err != nil {
				return err
			}
			metrics.StoreMutationsTotal.WithLabelValues("service_requests", "delete").Inc()
			logger.L().Debug("request_deleted", "request_id", requestID)
			return nil
		}
	}
	return store.NotFoundf("service request", requestID)
}

// RequestStats：按状态/类型/优先级的全表分组计数
func (s *RequestStore) RequestStats(_ context.Context) (store.RequestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := s.load()
	if err != nil {
		return store.RequestStats{}, err
	}
	st := store.RequestStats{
		Total:      len(requests),
		ByStatus:   map[string]int{},
		ByType:     map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, r := range requests {
		st.ByStatus[r.Status]++
		st.ByType[r.RequestType]++
		st.ByPriority[r.Priority]++
	}
	return st, nil
}
