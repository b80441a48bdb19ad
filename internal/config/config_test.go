package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDefaults(t *testing.T, cfg Config) {
	t.Helper()
	want := DefaultConfig()
	assert.Equal(t, want.Host, cfg.Host)
	assert.Equal(t, want.Port, cfg.Port)
	assert.Equal(t, want.Timeout, cfg.Timeout)
	assert.Equal(t, want.LogLevel, cfg.LogLevel)
	assert.False(t, cfg.StrictRequirements)
	assert.Empty(t, cfg.Config)
	assert.Empty(t, cfg.Args)
}

// TestLoad 测试配置加载优先级
func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/server.yaml", []byte(`
host: 0.0.0.0
port: 8080
timeout: 10s
strict_requirements: true
config:
  - /etc/liveproxy/a
  - /etc/liveproxy/b
args:
  - --http-proxy=http://127.0.0.1:3128
`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/broken.yaml", []byte("port: [\n"), 0o644))

	tests := []struct {
		name      string
		path      string
		overrides map[string]any
		check     func(t *testing.T, cfg Config)
		wantErr   bool
	}{
		{
			name:  "只有默认值",
			check: assertDefaults,
		},
		{
			name:  "配置文件不存在时使用默认值",
			path:  "/missing.yaml",
			check: assertDefaults,
		},
		{
			name: "配置文件覆盖默认值",
			path: "/server.yaml",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "0.0.0.0", cfg.Host)
				assert.Equal(t, 8080, cfg.Port)
				assert.Equal(t, 10*time.Second, cfg.Timeout)
				assert.True(t, cfg.StrictRequirements)
				assert.Equal(t, []string{"/etc/liveproxy/a", "/etc/liveproxy/b"}, cfg.Config)
				assert.Equal(t, []string{"--http-proxy=http://127.0.0.1:3128"}, cfg.Args)
				assert.Equal(t, "info", cfg.LogLevel, "未出现的键保持默认值")
			},
		},
		{
			name:      "flags 覆盖配置文件",
			path:      "/server.yaml",
			overrides: map[string]any{"port": 9090, "timeout": 2 * time.Second, "log_format": "json"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "0.0.0.0", cfg.Host)
				assert.Equal(t, 9090, cfg.Port)
				assert.Equal(t, 2*time.Second, cfg.Timeout)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name:    "配置文件格式错误",
			path:    "/broken.yaml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(fsys, tt.path, tt.overrides)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

// TestDefaultConfigFiles 测试默认配置文件候选
func TestDefaultConfigFiles(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	files := DefaultConfigFiles()

	require.NotEmpty(t, files)
	assert.Contains(t, files, "/home/tester/.liveproxyrc")
	assert.Equal(t, "/home/tester/.liveproxyrc", files[len(files)-1])
}
