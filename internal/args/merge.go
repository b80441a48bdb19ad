package args

import (
	"slices"

	"github.com/spf13/afero"
)

// LookupFunc returns the name of the resolver module that owns url.
type LookupFunc func(url string) (name string, ok bool)

// Merger layers config files under a directly specified argument list.
//
// Precedence, highest first:
//  1. the argument list itself
//  2. resolver config files "<default>.<resolver>", in default order
//  3. explicit --config files, last given first
//     (or, without --config, the first existing default file)
//  4. flag and resolver defaults
type Merger struct {
	parser   *Parser
	fs       afero.Fs
	defaults []string
	lookup   LookupFunc
}

// NewMerger returns a Merger. defaults are the candidate config files in
// order of preference; lookup may be nil to disable resolver config files.
func NewMerger(parser *Parser, fs afero.Fs, defaults []string, lookup LookupFunc) *Merger {
	return &Merger{parser: parser, fs: fs, defaults: defaults, lookup: lookup}
}

// Merge parses arglist, selects the config files that apply to it and, if
// any exist, parses again with those files included. Unknown tokens in
// the config pass are always ignored.
func (m *Merger) Merge(arglist []string, ignoreUnknown bool) (*Args, error) {
	base, err := m.parser.Parse(arglist, ignoreUnknown)
	if err != nil {
		return nil, err
	}

	merged := m.withConfigFiles(arglist, m.ConfigFiles(base))
	if len(merged) == len(arglist) {
		return base, nil
	}
	return m.parser.Parse(merged, true)
}

// ConfigFiles returns the candidate config files for a, highest
// precedence first. Files are not checked for existence here, except
// when picking among the defaults.
func (m *Merger) ConfigFiles(a *Args) []string {
	var files []string
	if a.URL != "" && m.lookup != nil {
		if name, ok := m.lookup(a.URL); ok {
			for _, fn := range m.defaults {
				files = append(files, fn+"."+name)
			}
		}
	}

	if len(a.Config) > 0 {
		files = append(files, reversed(a.Config)...)
		return files
	}
	for _, fn := range m.defaults {
		if m.isFile(fn) {
			files = append(files, fn)
			break
		}
	}
	return files
}

// withConfigFiles returns a copy of arglist with an @file directive for
// each existing file. Every file is inserted at the front, so the last
// file ends up first and is overridden by everything after it.
func (m *Merger) withConfigFiles(arglist []string, files []string) []string {
	out := slices.Clone(arglist)
	for _, fn := range files {
		if m.isFile(fn) {
			out = slices.Insert(out, 0, "@"+fn)
		}
	}
	return out
}

func (m *Merger) isFile(path string) bool {
	info, err := m.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func reversed(s []string) []string {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}
