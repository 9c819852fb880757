// 包 restrooms：公共厕所开放数据的抓取、缓存与过滤
package restrooms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mapable-api/internal/metrics"
)

// Client：CKAN datastore_search 接口客户端
// 背景：上游为波士顿开放数据平台；响应体形如 {"result":{"records":[...]}}。
// 约束：固定 5 秒超时；非 200 与解析失败都视为抓取失败，由缓存层回退种子数据。
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: 5 * time.Second}}
}

// ckanResponse：仅解出需要的层级
type ckanResponse struct {
	Result struct {
		Records []map[string]any `json:"records"`
	} `json:"result"`
}

// Fetch：抓取一次完整数据集
func (c *Client) Fetch(ctx context.Context) ([]map[string]any, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamFetchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	metrics.UpstreamFetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamFetchTotal.WithLabelValues("bad_status").Inc()
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	var body ckanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.UpstreamFetchTotal.WithLabelValues("parse_error").Inc()
		return nil, err
	}
	metrics.UpstreamFetchTotal.WithLabelValues("ok").Inc()
	return body.Result.Records, nil
}
