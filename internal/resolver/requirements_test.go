package resolver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApply 测试参数值写入与依赖检查
func TestApply(t *testing.T) {
	t.Run("依赖已设置时工作集包含双方且无缺失", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "username", Requires: []string{"password"}},
			&Argument{Name: "password"},
		)
		opts := NewOptions(Defaults(args))

		res := Apply(args, []any{"alice", "secret"}, opts)

		assert.Equal(t, []string{"username", "password"}, names(res.Required))
		assert.Empty(t, res.Missing)
		assert.False(t, res.Cycle)
		assert.Equal(t, "alice", opts.String("username"))
		assert.Equal(t, "secret", opts.String("password"))
	})

	t.Run("依赖未设置时恰好一个缺失", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "username", Requires: []string{"password"}},
			&Argument{Name: "password"},
		)
		opts := NewOptions(Defaults(args))

		res := Apply(args, []any{"alice", ""}, opts)

		assert.Equal(t, []string{"username", "password"}, names(res.Required))
		require.Len(t, res.Missing, 1)
		assert.Equal(t, "password", res.Missing[0].Name)
	})

	t.Run("未设置的可选参数不触发依赖", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "username", Requires: []string{"password"}},
			&Argument{Name: "password"},
		)
		opts := NewOptions(Defaults(args))

		res := Apply(args, []any{"", ""}, opts)

		assert.Empty(t, res.Required)
		assert.Empty(t, res.Missing)
	})

	t.Run("必需参数缺失", func(t *testing.T) {
		args := NewArguments(&Argument{Name: "token", Required: true})
		opts := NewOptions(Defaults(args))

		res := Apply(args, []any{""}, opts)

		require.Len(t, res.Missing, 1)
		assert.Equal(t, "token", res.Missing[0].Name)
	})

	t.Run("缺少值时保留默认值", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "quality", Default: "best"},
			&Argument{Name: "retries", Kind: KindInt, Default: 3},
		)
		opts := NewOptions(nil)

		Apply(args, nil, opts)

		assert.Equal(t, "best", opts.String("quality"))
		assert.Equal(t, 3, opts.Int("retries"))
	})

	t.Run("环停止展开但继续写入后续值", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "p", Requires: []string{"q"}},
			&Argument{Name: "q", Requires: []string{"p"}},
			&Argument{Name: "x", Requires: []string{"y"}},
			&Argument{Name: "y"},
		)
		opts := NewOptions(Defaults(args))

		var res Requirements
		assert.NotPanics(t, func() {
			res = Apply(args, []any{"1", "", "2", ""}, opts)
		})

		assert.True(t, res.Cycle)
		assert.Equal(t, "2", opts.String("x"))
		// x 在环之后，其依赖 y 不再展开
		assert.NotContains(t, names(res.Required), "y")
		assert.Contains(t, names(res.Required), "x")
	})

	t.Run("各类型真值判断", func(t *testing.T) {
		args := NewArguments(
			&Argument{Name: "flag", Kind: KindBool, Required: true},
			&Argument{Name: "count", Kind: KindInt, Required: true},
			&Argument{Name: "wait", Kind: KindDuration, Required: true},
		)
		opts := NewOptions(nil)

		res := Apply(args, []any{false, 0, time.Duration(0)}, opts)
		assert.Len(t, res.Missing, 3)

		res = Apply(args, []any{true, 2, time.Second}, opts)
		assert.Empty(t, res.Missing)
	})
}

// TestOptions_Clone 测试快照隔离
func TestOptions_Clone(t *testing.T) {
	base := NewOptions(map[string]any{
		"headers": map[string]string{"a": "1"},
		"names":   []string{"x"},
		"token":   "t",
	})

	clone := base.Clone()
	clone.Set("token", "changed")
	clone.StringMap("headers")["b"] = "2"
	clone.Get("headers").(map[string]string)["c"] = "3"

	assert.Equal(t, "t", base.String("token"))
	assert.Equal(t, map[string]string{"a": "1"}, base.Get("headers"))
	assert.Equal(t, []string{"x"}, base.Get("names"))
}

// TestOptions_Concurrent 测试并发请求各自持有独立快照
func TestOptions_Concurrent(t *testing.T) {
	args := NewArguments(&Argument{Name: "token"})
	defaults := NewOptions(Defaults(args))

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range 50 {
		wg.Go(func() {
			opts := defaults.Clone()
			Apply(args, []any{string(rune('a' + i%26))}, opts)
			time.Sleep(time.Millisecond)
			results[i] = opts.String("token")
		})
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, string(rune('a'+i%26)), got)
	}
	assert.Nil(t, defaults.Get("token"))
}

// TestTruthy 测试真值判断
func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"空字符串", "", false},
		{"字符串", "x", true},
		{"false", false, false},
		{"true", true, true},
		{"零", 0, false},
		{"非零", 7, true},
		{"空切片", []string{}, false},
		{"切片", []string{"a"}, true},
		{"空 map", map[string]string{}, false},
		{"零时长", time.Duration(0), false},
		{"浮点", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}
