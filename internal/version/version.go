// 包 version：构建期注入的版本信息，供接口与日志统一引用
package version

// 通过 -ldflags "-X mapable-api/internal/version.Commit=..." 注入
var (
	Version = "0.1.0"
	Commit  = "dev"
)
