package args

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookup(url string) (string, bool) {
	if newFakeResolver().Match(url) {
		return "fake", true
	}
	return "", false
}

// TestMerger_Merge 测试配置合并优先级
func TestMerger_Merge(t *testing.T) {
	t.Run("显式配置：后指定的优先，直接参数最高", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/a", "http-proxy=http://a\nhttps-proxy=https://a\nlocale=a\nfake-retries=1\n")
		writeFile(t, fs, "/b", "http-proxy=http://b\nhttps-proxy=https://b\n")
		writeFile(t, fs, "/c", "http-proxy=http://c\n")
		m := NewMerger(newTestParser(fs), fs, nil, fakeLookup)

		a, err := m.Merge([]string{"--config", "/a", "--config", "/b", "--config", "/c", "--locale", "direct"}, false)

		require.NoError(t, err)
		assert.Equal(t, "http://c", a.HTTPProxy)
		assert.Equal(t, "https://b", a.HTTPSProxy)
		assert.Equal(t, "direct", a.Locale)
		assert.Equal(t, 1, a.PluginValues("fake")[1])
		// 未被任何层设置的参数保留默认值
		assert.Equal(t, "", a.PluginValues("fake")[0])
	})

	t.Run("没有显式配置时只使用第一个存在的默认配置", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/d2", "http-proxy=http://d2\n")
		writeFile(t, fs, "/d3", "http-proxy=http://d3\nlocale=d3\n")
		m := NewMerger(newTestParser(fs), fs, []string{"/d1", "/d2", "/d3"}, fakeLookup)

		a, err := m.Merge(nil, false)

		require.NoError(t, err)
		assert.Equal(t, "http://d2", a.HTTPProxy)
		assert.Empty(t, a.Locale)
	})

	t.Run("显式配置时忽略默认配置", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/d1", "locale=default\n")
		writeFile(t, fs, "/x", "http-proxy=http://x\n")
		m := NewMerger(newTestParser(fs), fs, []string{"/d1"}, fakeLookup)

		a, err := m.Merge([]string{"--config", "/x"}, false)

		require.NoError(t, err)
		assert.Equal(t, "http://x", a.HTTPProxy)
		assert.Empty(t, a.Locale)
	})

	t.Run("解析器配置优先于显式配置", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/d1.fake", "fake-token=from-d1\n")
		writeFile(t, fs, "/d2.fake", "fake-token=from-d2\nfake-verbose\n")
		writeFile(t, fs, "/x", "fake-token=from-x\nfake-retries=9\n")
		m := NewMerger(newTestParser(fs), fs, []string{"/d1", "/d2"}, fakeLookup)

		a, err := m.Merge([]string{"--config", "/x", "--url", "https://fake.example/live"}, false)

		require.NoError(t, err)
		values := a.PluginValues("fake")
		assert.Equal(t, "from-d1", values[0])
		assert.Equal(t, 9, values[1])
		assert.Equal(t, true, values[2])
	})

	t.Run("直接参数优先于解析器配置", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/d1.fake", "fake-token=from-file\n")
		m := NewMerger(newTestParser(fs), fs, []string{"/d1"}, fakeLookup)

		a, err := m.Merge([]string{"--fake-token", "direct", "https://fake.example/live"}, false)

		require.NoError(t, err)
		assert.Equal(t, "direct", a.PluginValues("fake")[0])
	})

	t.Run("URL 无法识别时跳过解析器配置", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/d1", "locale=global\n")
		writeFile(t, fs, "/d1.fake", "locale=fake\n")
		m := NewMerger(newTestParser(fs), fs, []string{"/d1"}, fakeLookup)

		a, err := m.Merge([]string{"--url", "https://unknown.example/live"}, false)

		require.NoError(t, err)
		assert.Equal(t, "global", a.Locale)
	})

	t.Run("不存在的显式配置被跳过", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		m := NewMerger(newTestParser(fs), fs, nil, nil)

		a, err := m.Merge([]string{"--config", "/missing", "--locale", "x"}, false)

		require.NoError(t, err)
		assert.Equal(t, "x", a.Locale)
	})

	t.Run("配置文件中的未知参数被忽略", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/x", "player=vlc\nlocale=x\n")
		m := NewMerger(newTestParser(fs), fs, nil, nil)

		a, err := m.Merge([]string{"--config", "/x"}, false)

		require.NoError(t, err)
		assert.Equal(t, "x", a.Locale)
	})

	t.Run("不修改调用者的参数列表", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/x", "locale=x\n")
		m := NewMerger(newTestParser(fs), fs, nil, nil)
		arglist := []string{"--config", "/x"}

		_, err := m.Merge(arglist, false)

		require.NoError(t, err)
		assert.Equal(t, []string{"--config", "/x"}, arglist)
	})
}

// TestMerger_PrecedenceProperty 测试任意数量显式配置时最后一个生效
func TestMerger_PrecedenceProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("last explicit config wins", prop.ForAll(
		func(n int) bool {
			fs := afero.NewMemMapFs()
			m := NewMerger(newTestParser(fs), fs, nil, nil)
			var arglist []string
			for i := range n {
				path := fmt.Sprintf("/cfg%d", i)
				if err := afero.WriteFile(fs, path, fmt.Appendf(nil, "http-proxy=http://%d\n", i), 0o644); err != nil {
					return false
				}
				arglist = append(arglist, "--config", path)
			}

			a, err := m.Merge(arglist, false)
			return err == nil && a.HTTPProxy == fmt.Sprintf("http://%d", n-1)
		},
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
