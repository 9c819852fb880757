package migrate

import (
	"database/sql"

	"mapable-api/internal/logger"
)

// 背景：选用 PostgreSQL 后端时首次运行自动建表，保障后续读写
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _ma_reviews (
            review_id TEXT PRIMARY KEY,
            location_id TEXT NOT NULL,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            title TEXT NOT NULL,
            content TEXT NOT NULL,
            rating INT NOT NULL,
            author TEXT NOT NULL,
            tags TEXT NOT NULL DEFAULT '[]',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_location ON _ma_reviews(location_id)`,
		`CREATE TABLE IF NOT EXISTS _ma_locations (
            location_id TEXT PRIMARY KEY,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            review_count INT NOT NULL DEFAULT 0,
            average_rating DOUBLE PRECISION
        )`,
		`CREATE TABLE IF NOT EXISTS _ma_service_requests (
            request_id TEXT PRIMARY KEY,
            request_type TEXT NOT NULL,
            location_id TEXT,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            address TEXT NOT NULL,
            description TEXT NOT NULL,
            priority TEXT NOT NULL,
            status TEXT NOT NULL,
            requester_name TEXT NOT NULL,
            requester_email TEXT,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status ON _ma_service_requests(status)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
