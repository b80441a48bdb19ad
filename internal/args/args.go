package args

import (
	"strings"
	"time"
)

// Args is the result of one parse pass. It is never mutated after Parse
// returns; a new pass produces a new Args.
type Args struct {
	URL      string
	URLParam string   // first positional parameter
	Streams  []string // lower-case, in the order given
	Config   []string // explicit config files, in the order given

	// HTTP session
	HTTPProxy         string
	HTTPSProxy        string
	HTTPCookie        []string // KEY=VALUE, repeatable
	HTTPCookies       map[string]string
	HTTPHeader        []string // KEY=VALUE, repeatable
	HTTPHeaders       map[string]string
	HTTPQueryParam    []string // KEY=VALUE, repeatable
	HTTPQueryParams   map[string]string
	HTTPIgnoreEnv     bool
	HTTPNoSSLVerify   bool
	HTTPDisableDH     bool
	HTTPSSLCert       string
	HTTPSSLCertCrtKey []string // CRT,KEY
	HTTPTimeout       time.Duration

	// Stream transport
	HTTPStreamTimeout     time.Duration
	RingbufferSize        int
	StreamSegmentAttempts int
	StreamSegmentThreads  int
	StreamSegmentTimeout  time.Duration
	StreamTimeout         time.Duration

	// HLS
	HLSLiveEdge               int
	HLSSegmentAttempts        int
	HLSPlaylistReloadAttempts int
	HLSSegmentThreads         int
	HLSSegmentTimeout         time.Duration
	HLSSegmentIgnoreNames     []string
	HLSTimeout                time.Duration
	HLSAudioSelect            []string
	HLSStartOffset            time.Duration
	HLSDuration               time.Duration
	HLSLiveRestart            bool

	// HDS
	HDSLiveEdge        float64
	HDSSegmentAttempts int
	HDSSegmentThreads  int
	HDSSegmentTimeout  time.Duration
	HDSTimeout         time.Duration

	// RTMP
	RTMPProxy    string
	RTMPRTMPDump string
	RTMPTimeout  time.Duration

	// Transcoding
	FFmpegFFmpeg         string
	FFmpegVerbose        bool
	FFmpegVerbosePath    string
	FFmpegVideoTranscode string
	FFmpegAudioTranscode string

	SubprocessErrorlog     bool
	SubprocessErrorlogPath string
	Locale                 string

	stream  string
	plugins map[string][]any
}

// PluginValues returns the parsed values of a resolver's arguments, aligned
// with its Arguments().All().
func (a *Args) PluginValues(resolver string) []any {
	return a.plugins[resolver]
}

func (a *Args) canonicalize(positional []string) {
	if len(positional) > 0 {
		a.URLParam = positional[0]
	}
	if a.URL == "" && isURLShaped(a.URLParam) {
		a.URL = a.URLParam
	}
	if a.stream == "" && len(positional) > 1 {
		a.stream = positional[1]
	}
	a.Streams = splitStreams(a.stream)
}

// isURLShaped reports whether s names a scheme, e.g. "https://..." or
// "httpstream://...". Bare words such as "best" are not promoted to the URL.
func isURLShaped(s string) bool {
	scheme, rest, ok := strings.Cut(s, "://")
	return ok && scheme != "" && rest != "" && !strings.ContainsAny(scheme, "/?#@ ")
}

// splitStreams lower-cases a comma separated stream list, keeping order.
func splitStreams(list string) []string {
	var streams []string
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		streams = append(streams, strings.ToLower(s))
	}
	return streams
}
