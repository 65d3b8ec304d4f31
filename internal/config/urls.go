package config

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL 将 params 以键名排序后拼接为查询串，保证生成结果稳定。
func BuildURL(path string, params map[string]any) string {
	if len(params) == 0 {
		return path
	}
	values := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				values.Add(key, fmt.Sprint(item))
			}
		case []string:
			for _, item := range v {
				values.Add(key, item)
			}
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + values.Encode()
}

// URL 返回预热页面的完整地址。
func (w WarmURL) URL() string {
	return BuildURL(w.Path, w.Params)
}
