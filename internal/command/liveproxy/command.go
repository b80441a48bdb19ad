package liveproxy

import (
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251124-liveproxy/internal/config"
)

// 默认配置 - 单一来源 (Single Source of Truth)
var defaults = config.DefaultConfig()

// serverFlags 映射到 config.Config 的 flag，键名中的 '-' 对应 koanf 标签中的 '_'
var serverFlags = []string{
	"host",
	"port",
	"port-file",
	"timeout",
	"no-access-log",
	"log-level",
	"log-format",
	"config",
	"strict-args",
	"strict-requirements",
}

// Command returns the liveproxy CLI command.
// 位置参数 (通常放在 "--" 之后) 作为流选项应用于每个请求，例如：
//
//	liveproxy --port 53422 -- --http-proxy=http://127.0.0.1:8080 --stream best
func Command(version string) *cli.Command {
	return &cli.Command{
		Name:      "liveproxy",
		Usage:     "HTTP server that resolves stream URLs and proxies or redirects to the media",
		Version:   version,
		ArgsUsage: "[-- stream options...]",
		Action:    action,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Aliases: []string{"H"},
				Value:   defaults.Host,
				Usage:   "listen host address",
				Sources: cli.EnvVars("LIVEPROXY_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   defaults.Port,
				Usage:   "listen port (0 for auto-assign)",
				Sources: cli.EnvVars("LIVEPROXY_PORT"),
			},
			&cli.StringFlag{
				Name:    "port-file",
				Value:   defaults.PortFile,
				Usage:   "file to write actual port",
				Sources: cli.EnvVars("LIVEPROXY_PORT_FILE"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   defaults.Timeout,
				Usage:   "idle timeout, and write timeout while streaming",
				Sources: cli.EnvVars("LIVEPROXY_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "no-access-log",
				Value:   defaults.NoAccessLog,
				Usage:   "disable access logging",
				Sources: cli.EnvVars("LIVEPROXY_NO_ACCESS_LOG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   defaults.LogLevel,
				Usage:   "log level: debug, info, warn, error",
				Sources: cli.EnvVars("LIVEPROXY_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   defaults.LogFormat,
				Usage:   "log format: text, json",
				Sources: cli.EnvVars("LIVEPROXY_LOG_FORMAT"),
			},
			&cli.StringSliceFlag{
				Name:    "config",
				Usage:   "stream options file, later files take precedence (repeatable)",
				Sources: cli.EnvVars("LIVEPROXY_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "server-config",
				Value:   config.DefaultServerConfigFile(),
				Usage:   "YAML file with server settings",
				Sources: cli.EnvVars("LIVEPROXY_SERVER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "strict-args",
				Value:   defaults.StrictArgs,
				Usage:   "fail on unknown stream options at startup",
				Sources: cli.EnvVars("LIVEPROXY_STRICT_ARGS"),
			},
			&cli.BoolFlag{
				Name:    "strict-requirements",
				Value:   defaults.StrictRequirements,
				Usage:   "answer 404 when a required resolver argument is missing",
				Sources: cli.EnvVars("LIVEPROXY_STRICT_REQUIREMENTS"),
			},
		},
	}
}
