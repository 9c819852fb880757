package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	tb := &TokenBucket{capacity: 3, tokens: 3, lastSec: time.Now().Unix()}
	for i := 0; i < 3; i++ {
		assert.True(t, tb.allow())
	}
	assert.False(t, tb.allow())
}

func TestWrapDisabledByDefault(t *testing.T) {
	called := 0
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))
	for i := 0; i < 500; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 500, called)
}

func TestWrapRejectsOverLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_QPS", "2")
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		codes[rec.Code]++
	}
	// 同一秒内最多放行 2 个；跨秒边界时可能放行 4 个
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 1)
	assert.LessOrEqual(t, codes[http.StatusOK], 4)
}
