// 包 geoip：由客户端 IP 推断坐标，为"附近"查询提供缺省搜索中心
// 背景：请求未携带经纬度时，若配置了 mmdb 库则按来访 IP 定位；
// 未配置或查询失败仅表现为不提供缺省值，不影响主流程。
package geoip

import (
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	gocache "github.com/patrickmn/go-cache"

	"mapable-api/internal/logger"
)

// Locator：mmdb 查询器，带按 IP 的短期记忆
type Locator struct {
	reader *geoip2.Reader
	memo   *gocache.Cache
}

type coords struct {
	lat float64
	lon float64
}

// Open：打开 mmdb 库；路径为空返回 nil 表示功能关闭
func Open(path string) *Locator {
	if path == "" {
		return nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		logger.L().Warn("geoip_open_error", "path", path, "err", err)
		return nil
	}
	logger.L().Info("geoip_ready", "path", path)
	return &Locator{
		reader: r,
		memo:   gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Locate：解析 IP 到坐标；命中记忆时不触达 mmdb
func (l *Locator) Locate(ip string) (lat, lon float64, ok bool) {
	if l == nil {
		return 0, 0, false
	}
	if v, hit := l.memo.Get(ip); hit {
		c := v.(coords)
		return c.lat, c.lon, true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return 0, 0, false
	}
	city, err := l.reader.City(parsed)
	if err != nil || city == nil {
		return 0, 0, false
	}
	lat = city.Location.Latitude
	lon = city.Location.Longitude
	if lat == 0 && lon == 0 {
		return 0, 0, false
	}
	l.memo.Set(ip, coords{lat: lat, lon: lon}, gocache.DefaultExpiration)
	logger.L().Debug("geoip_located", "ip", ip, "lat", lat, "lon", lon)
	return lat, lon, true
}

// Close：释放 mmdb 句柄
func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	return l.reader.Close()
}
