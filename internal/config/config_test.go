package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	s := Load()
	assert.Equal(t, ":8000", s.Addr)
	assert.Equal(t, "/api", s.APIBase)
	assert.Equal(t, "file", s.StoreBackend)
	assert.Equal(t, "data", s.DataDir)
	assert.Equal(t, "gemini-2.0-flash", s.GeminiModel)
	assert.NotEmpty(t, s.RestroomsURL)
}

func TestLoadHostPortFallback(t *testing.T) {
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9000")
	s := Load()
	assert.Equal(t, "0.0.0.0:9000", s.Addr)

	// 显式 ADDR 优先于 HOST/PORT
	t.Setenv("ADDR", ":7000")
	s = Load()
	assert.Equal(t, ":7000", s.Addr)

	// 非数字端口忽略
	t.Setenv("ADDR", "")
	t.Setenv("PORT", "abc")
	s = Load()
	assert.Equal(t, ":8000", s.Addr)
}
