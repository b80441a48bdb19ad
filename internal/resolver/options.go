package resolver

import (
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/spf13/cast"
)

// Options is a key/value set of option values.
//
// It backs both the per-resolver plugin options and the session option
// store. An Options value is not safe for concurrent mutation; requests
// work on their own Clone.
type Options struct {
	values map[string]any
}

// NewOptions returns an Options seeded with a copy of defaults.
func NewOptions(defaults map[string]any) *Options {
	values := make(map[string]any, len(defaults))
	maps.Copy(values, defaults)
	return &Options{values: values}
}

// Set stores value under key.
func (o *Options) Set(key string, value any) {
	o.values[key] = value
}

// Get returns the value stored under key, or nil.
func (o *Options) Get(key string) any {
	if o == nil {
		return nil
	}
	return o.values[key]
}

func (o *Options) String(key string) string { return cast.ToString(o.Get(key)) }

func (o *Options) Bool(key string) bool { return cast.ToBool(o.Get(key)) }

func (o *Options) Int(key string) int { return cast.ToInt(o.Get(key)) }

func (o *Options) Duration(key string) time.Duration { return cast.ToDuration(o.Get(key)) }

func (o *Options) StringMap(key string) map[string]string {
	return cast.ToStringMapString(o.Get(key))
}

func (o *Options) StringSlice(key string) []string { return cast.ToStringSlice(o.Get(key)) }

// Clone returns an independent copy. Map and slice values are copied one level deep.
func (o *Options) Clone() *Options {
	c := &Options{values: make(map[string]any, len(o.values))}
	for k, v := range o.values {
		switch x := v.(type) {
		case map[string]string:
			c.values[k] = maps.Clone(x)
		case []string:
			c.values[k] = slices.Clone(x)
		default:
			c.values[k] = v
		}
	}
	return c
}

// Truthy reports whether v is set to a non-empty, non-zero value.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}
