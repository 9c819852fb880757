// 包 config：集中读取环境变量并注入到各组件，避免模块级可变状态散落
package config

import (
	"os"
	"strconv"
)

// 波士顿公共厕所开放数据（CKAN datastore_search）
const defaultRestroomsURL = "https://data.boston.gov/api/3/action/datastore_search?resource_id=4f32efbe-e259-4755-8339-2027ee8d5ee5&limit=1000"

// Settings：应用配置快照
// 背景：原服务把缓存与路径散落在各模块的包级变量里，这里统一为一次性读取的结构体，
// 由入口注入到路由与存储层，测试时可直接构造
type Settings struct {
	AppName    string
	AppVersion string
	Debug      bool
	Addr       string
	APIBase    string

	DataDir      string
	StoreBackend string // "file"（默认）或 "postgres"

	RestroomsURL string

	GeminiAPIKey string
	GeminiModel  string

	GeoIPDBPath string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load：从环境变量装配配置
// 约束：布尔值仅识别 "true"；非法数值静默回退默认
func Load() Settings {
	s := Settings{
		AppName:      getenv("APP_NAME", "MapAble API"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Debug:        os.Getenv("DEBUG") == "true",
		Addr:         getenv("ADDR", ":8000"),
		APIBase:      getenv("API_BASE", "/api"),
		DataDir:      getenv("DATA_DIR", "data"),
		StoreBackend: getenv("STORE_BACKEND", "file"),
		RestroomsURL: getenv("RESTROOMS_API_URL", defaultRestroomsURL),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeoIPDBPath:  os.Getenv("GEOIP_DB_PATH"),
	}
	// HOST/PORT 兼容写法：仅当未显式给出 ADDR 时拼装
	if os.Getenv("ADDR") == "" {
		host := os.Getenv("HOST")
		if port := os.Getenv("PORT"); port != "" {
			if _, err := strconv.Atoi(port); err == nil {
				s.Addr = host + ":" + port
			}
		}
	}
	return s
}
