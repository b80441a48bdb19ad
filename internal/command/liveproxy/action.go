package liveproxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/lwmacct/251124-liveproxy/internal/args"
	"github.com/lwmacct/251124-liveproxy/internal/config"
	"github.com/lwmacct/251124-liveproxy/internal/proxy"
	"github.com/lwmacct/251124-liveproxy/internal/resolver/httpstream"
	"github.com/lwmacct/251124-liveproxy/internal/session"
)

// 配置优先级 (从低到高)：
// 1. 默认值 (config.DefaultConfig)
// 2. 服务配置文件 (--server-config)
// 3. 环境变量 (LIVEPROXY_*)
// 4. CLI flags (用户明确指定)

func action(ctx context.Context, cmd *cli.Command) error {
	fsys := afero.NewOsFs()

	cfg, err := config.Load(fsys, cmd.String("server-config"), flagOverrides(cmd))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sess := session.New(logger, httpstream.New())
	parser := args.NewParser(fsys, sess.Resolvers()...)
	merger := args.NewMerger(parser, fsys, config.DefaultConfigFiles(), sess.ResolverName)

	base := baseArgs(cfg, cmd.Args().Slice())
	startup, err := merger.Merge(base, !cfg.StrictArgs)
	if err != nil {
		sess.Close()
		return fmt.Errorf("stream options: %w", err)
	}
	sess.ApplyArgs(startup)
	cfg.Args = base

	server, err := proxy.NewServer(&cfg, sess, merger, logger)
	if err != nil {
		sess.Close()
		return err
	}

	// 优雅关闭
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("收到关闭信号", "cause", context.Cause(ctx))
			server.Shutdown()
		case <-done:
		}
	}()

	logger.Info("liveproxy starting",
		"host", cfg.Host,
		"port", cfg.Port,
		"resolvers", len(sess.Resolvers()),
		"http_proxy", sess.Option("http-proxy"),
		"http_timeout", sess.Option("http-timeout"),
	)
	if err := server.Run(); err != nil {
		server.Shutdown()
		return err
	}
	return nil
}

// flagOverrides 收集用户明确设置 (命令行或环境变量) 的 flag，键名转换为 koanf 标签
func flagOverrides(cmd *cli.Command) map[string]any {
	overrides := make(map[string]any)
	for _, name := range serverFlags {
		if cmd.IsSet(name) {
			overrides[strings.ReplaceAll(name, "-", "_")] = cmd.Value(name)
		}
	}
	return overrides
}

// baseArgs 组装应用于每个请求的流选项：显式配置文件在前，启动参数在后
func baseArgs(cfg config.Config, positional []string) []string {
	base := make([]string, 0, 2*len(cfg.Config)+len(cfg.Args)+len(positional))
	for _, file := range cfg.Config {
		base = append(base, "--config", file)
	}
	base = append(base, cfg.Args...)
	return append(base, positional...)
}

// newLogger 按级别与格式创建日志器
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
