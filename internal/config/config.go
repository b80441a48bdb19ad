// Package config 提供应用配置管理。
//
// 配置加载优先级 (从低到高)：
//  1. 默认值 - DefaultConfig() 函数中定义
//  2. 配置文件 - --server-config 指定的 YAML 文件
//  3. 环境变量 (LIVEPROXY_*) 与 CLI flags - 最高优先级
//
// 流选项配置文件 (--config) 与此无关，由 internal/args 负责合并。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"
)

// Config LiveProxy 服务配置
type Config struct {
	Host               string        `koanf:"host" comment:"监听地址，如 '127.0.0.1' 仅本地，'0.0.0.0' 所有接口"`
	Port               int           `koanf:"port" comment:"监听端口，0 表示自动分配"`
	PortFile           string        `koanf:"port_file" comment:"写入实际端口号的文件路径，为空则不写入"`
	Timeout            time.Duration `koanf:"timeout" comment:"连接空闲超时，流传输时为单次写入超时"`
	NoAccessLog        bool          `koanf:"no_access_log" comment:"禁用访问日志"`
	LogLevel           string        `koanf:"log_level" comment:"日志级别：debug, info, warn, error"`
	LogFormat          string        `koanf:"log_format" comment:"日志格式：text, json"`
	Config             []string      `koanf:"config" comment:"流选项配置文件，后指定的优先"`
	StrictArgs         bool          `koanf:"strict_args" comment:"启动时遇到未知流选项报错"`
	StrictRequirements bool          `koanf:"strict_requirements" comment:"缺少解析器必需参数时直接返回 404"`
	Args               []string      `koanf:"args" comment:"应用于每个请求的流选项，如 --http-proxy=..."`
}

// DefaultConfig 返回默认配置
// 这是配置默认值的唯一来源 (Single Source of Truth)
// CLI flags 从此函数读取默认值，--help 显示与代码自动一致
func DefaultConfig() Config {
	return Config{
		Host:               "127.0.0.1",
		Port:               53422,
		PortFile:           "",
		Timeout:            5 * time.Second,
		NoAccessLog:        false,
		LogLevel:           "info",
		LogFormat:          "text",
		StrictArgs:         false,
		StrictRequirements: false,
	}
}

// Load 合并默认值、YAML 配置文件与已设置的 flags。
// path 为空或文件不存在时跳过配置文件；overrides 的键为 koanf 标签名。
func Load(fsys afero.Fs, path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// DefaultServerConfigFile 返回默认的服务配置文件路径。
func DefaultServerConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "liveproxy", "server.yaml")
}

// DefaultConfigFiles 返回默认的流选项配置文件候选，按优先顺序排列。
// 解析器专用配置为 "<候选>.<解析器名>"。
func DefaultConfigFiles() []string {
	var files []string
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "liveproxy", "config"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".liveproxyrc"))
	}
	return files
}
