package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"mapable-api/internal/config"
)

func TestWelcomeOnlyAtRoot(t *testing.T) {
	mux := http.NewServeMux()
	registerWelcome(mux, config.Settings{AppName: "MapAble API", APIBase: "/api"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to MapAble API")

	// 未注册路径不被根处理器兜底
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/bogus", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
