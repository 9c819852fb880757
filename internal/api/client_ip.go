package api

import (
	"net"
	"net/http"
	"strings"
)

// getClientIP：解析访问者 IP——优先常见反向代理头，回退 RemoteAddr
// 背景：多层代理场景下 RemoteAddr 是最近一跳；头部由入口网关写入
func getClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("cf-connecting-ip"); x != "" {
		return x
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
