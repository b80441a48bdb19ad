package args

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/afero"
)

const (
	maxArgFileDepth = 8
	maxArgFileSize  = 1 << 20
)

var (
	// ErrArgFileDepth is returned when @file inclusions nest too deeply.
	ErrArgFileDepth = errors.New("argument files nested too deeply")
	// ErrArgFileType is returned when an @file target is not a regular file.
	ErrArgFileType = errors.New("argument file is not a regular file")
	// ErrArgFileSize is returned when an argument file exceeds maxArgFileSize.
	ErrArgFileSize = errors.New("argument file too large")
)

// expandArgFiles replaces every "@path" token with the tokens read from path.
func expandArgFiles(fs afero.Fs, arglist []string, depth int) ([]string, error) {
	out := make([]string, 0, len(arglist))
	for _, tok := range arglist {
		if len(tok) < 2 || tok[0] != '@' {
			out = append(out, tok)
			continue
		}
		path := tok[1:]
		if depth >= maxArgFileDepth {
			return nil, fmt.Errorf("%s: %w", path, ErrArgFileDepth)
		}

		data, err := readArgFile(fs, path)
		if err != nil {
			return nil, err
		}
		lines, err := splitArgFile(string(data))
		if err != nil {
			return nil, fmt.Errorf("argument file %s: %w", path, err)
		}
		nested, err := expandArgFiles(fs, lines, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// readArgFile reads a regular file of at most maxArgFileSize bytes.
func readArgFile(fs afero.Fs, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read argument file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("read argument file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrArgFileType)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxArgFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read argument file: %w", err)
	}
	if len(data) > maxArgFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrArgFileSize)
	}
	return data, nil
}

// splitArgFile tokenizes a config file. Each line holds one option:
//
//	# comment
//	--http-header "User-Agent=Mozilla/5.0 (X11)"
//	http-proxy=http://127.0.0.1:8080
//	hls-live-edge 6
//	http-no-ssl-verify
func splitArgFile(content string) ([]string, error) {
	var tokens []string
	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] == '-' || line[0] == '@' {
			words, err := shellquote.Split(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n+1, err)
			}
			tokens = append(tokens, words...)
			continue
		}

		i := strings.IndexAny(line, "= \t")
		if i < 0 {
			tokens = append(tokens, "--"+line)
			continue
		}
		value := strings.TrimSpace(line[i:])
		if line[i] != '=' {
			value = strings.TrimPrefix(value, "=")
		} else {
			value = value[1:]
		}
		tokens = append(tokens, "--"+line[:i]+"="+strings.TrimSpace(value))
	}
	return tokens, nil
}
