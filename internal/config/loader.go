package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultPath 是未指定 --config 时读取的文件。
const DefaultPath = "swforge.yaml"

// Load 读取配置文件（按扩展名识别 YAML/TOML/JSON）并归一化。
func Load(path string) (*Config, []Deprecation, error) {
	raw, err := ReadRaw(path)
	if err != nil {
		return nil, nil, err
	}
	return Normalize(raw)
}

// ReadRaw 只负责读取原始配置树，不做任何校验。
func ReadRaw(path string) (map[string]any, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return v.AllSettings(), nil
}
