// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"mapable-api/internal/api"
	"mapable-api/internal/cache"
	"mapable-api/internal/chat"
	"mapable-api/internal/config"
	"mapable-api/internal/geoip"
	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
	"mapable-api/internal/middleware"
	"mapable-api/internal/migrate"
	"mapable-api/internal/restrooms"
	"mapable-api/internal/store"
	filestore "mapable-api/internal/store/file"
	pgstore "mapable-api/internal/store/pg"
	"mapable-api/internal/utils"
	"mapable-api/internal/version"
)

// registerWelcome：仅根路径返回欢迎信息，其余未匹配路径交由 mux 兜底 404
func registerWelcome(mux *http.ServeMux, settings config.Settings) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"message":"Welcome to ` + settings.AppName + `","docs":"` + settings.APIBase + `"}`))
	})
}

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	l.Debug("log_init_ok")
	l.Info("starting", "version", version.Version, "commit", version.Commit)

	settings := config.Load()
	l.Debug("config_loaded",
		"addr", settings.Addr,
		"api_base", settings.APIBase,
		"store_backend", settings.StoreBackend,
		"data_dir", settings.DataDir,
	)

	// 存储装配：默认快照文件；STORE_BACKEND=postgres 时切换到数据库
	var reviews store.ReviewStore
	var requests store.RequestStore
	switch settings.StoreBackend {
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		reviews = pgstore.NewReviewStore(db)
		requests = pgstore.NewRequestStore(db)
	default:
		reviews = filestore.NewReviewStore(settings.DataDir)
		requests = filestore.NewRequestStore(settings.DataDir)
	}
	if err := reviews.Initialize(); err != nil {
		l.Error("store_init_error", "store", "reviews", "err", err)
		os.Exit(1)
	}
	if err := requests.Initialize(); err != nil {
		l.Error("store_init_error", "store", "requests", "err", err)
		os.Exit(1)
	}
	l.Info("store_ready", "backend", settings.StoreBackend)

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	registry := cache.NewRegistry()
	restroomSvc := restrooms.NewService(settings.RestroomsURL, time.Hour, rc, registry)

	locator := geoip.Open(settings.GeoIPDBPath)
	if locator != nil {
		defer locator.Close()
	}

	chatSvc, err := chat.NewService(context.Background(), settings.GeminiAPIKey, settings.GeminiModel,
		chat.NewDispatcher(reviews, requests))
	if err != nil {
		l.Error("chat_init_error", "err", err)
		os.Exit(1)
	}
	defer chatSvc.Close()

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(&api.Deps{
		Settings:  settings,
		Reviews:   reviews,
		Requests:  requests,
		Restrooms: restroomSvc,
		Registry:  registry,
		Chat:      chatSvc,
		Locator:   locator,
	})
	mux.Handle(settings.APIBase+"/", http.StripPrefix(settings.APIBase, apiMux))
	mux.Handle(settings.APIBase+"/metrics", metrics.Handler())
	registerWelcome(mux, settings)

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: settings.Addr, Handler: handler}

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join(settings.DataDir, "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join(settings.DataDir, "certs", "server.key")
		}
		_ = utils.EnsureSelfSignedCert(certPath, keyPath, "mapable-api.local")
		l.Info("listening_tls", "addr", settings.Addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", settings.Addr)
	_ = s.ListenAndServe()
}
