package version

import (
	"fmt"
	"runtime"
)

// Version/Commit 可在构建时通过 -ldflags 注入，默认使用开发占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 返回便于 CLI 打印的完整版本信息。
func Full() string {
	return fmt.Sprintf("swforge %s (%s)", Version, Commit)
}

// Info 返回结构化的版本信息，供 `version --json` 与启动日志使用。
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"go":      runtime.Version(),
	}
}
