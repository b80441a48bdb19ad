package session

import (
	"strings"

	"github.com/lwmacct/251124-liveproxy/internal/args"
	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

type option struct {
	key   string
	value any
}

// ApplyArgs writes the global options present in a into the OptionStore.
// Unset fields leave the current value alone, so ApplyArgs may be called
// repeatedly with partial Args. A pooled HTTP client built for the previous
// transport settings is closed when those settings change.
func (s *Session) ApplyArgs(a *args.Args) {
	before := ProfileFrom(s.Options())

	for _, o := range globalOptions(a) {
		if resolver.Truthy(o.value) {
			s.SetOption(o.key, o.value)
		}
	}

	// 取反类选项：只在显式指定时关闭默认开启的行为
	if a.HTTPIgnoreEnv {
		s.SetOption("http-trust-env", false)
	}
	if a.HTTPNoSSLVerify {
		s.SetOption("http-ssl-verify", false)
	}

	if after := ProfileFrom(s.Options()); after != before {
		s.pool.RemoveClient(before)
		s.logger.Debug("http transport settings changed", "http_proxy", after.HTTPProxy, "ssl_verify", after.SSLVerify)
	}
}

// globalOptions lists OptionStore keys in application order. The mapping
// forms of cookies, headers and query parameters follow their repeatable
// KEY=VALUE forms and replace them when both are given.
func globalOptions(a *args.Args) []option {
	return []option{
		{"http-proxy", a.HTTPProxy},
		{"https-proxy", a.HTTPSProxy},
		{"http-cookies", keyValues(a.HTTPCookie)},
		{"http-cookies", a.HTTPCookies},
		{"http-headers", keyValues(a.HTTPHeader)},
		{"http-headers", a.HTTPHeaders},
		{"http-query-params", keyValues(a.HTTPQueryParam)},
		{"http-query-params", a.HTTPQueryParams},
		{"http-disable-dh", a.HTTPDisableDH},
		{"http-ssl-cert", a.HTTPSSLCert},
		{"http-ssl-cert-crt-key", a.HTTPSSLCertCrtKey},
		{"http-timeout", a.HTTPTimeout},

		{"http-stream-timeout", a.HTTPStreamTimeout},
		{"ringbuffer-size", a.RingbufferSize},
		{"stream-segment-attempts", a.StreamSegmentAttempts},
		{"stream-segment-threads", a.StreamSegmentThreads},
		{"stream-segment-timeout", a.StreamSegmentTimeout},
		{"stream-timeout", a.StreamTimeout},

		{"hls-live-edge", a.HLSLiveEdge},
		{"hls-segment-attempts", a.HLSSegmentAttempts},
		{"hls-playlist-reload-attempts", a.HLSPlaylistReloadAttempts},
		{"hls-segment-threads", a.HLSSegmentThreads},
		{"hls-segment-timeout", a.HLSSegmentTimeout},
		{"hls-segment-ignore-names", a.HLSSegmentIgnoreNames},
		{"hls-timeout", a.HLSTimeout},
		{"hls-audio-select", a.HLSAudioSelect},
		{"hls-start-offset", a.HLSStartOffset},
		{"hls-duration", a.HLSDuration},
		{"hls-live-restart", a.HLSLiveRestart},

		{"hds-live-edge", a.HDSLiveEdge},
		{"hds-segment-attempts", a.HDSSegmentAttempts},
		{"hds-segment-threads", a.HDSSegmentThreads},
		{"hds-segment-timeout", a.HDSSegmentTimeout},
		{"hds-timeout", a.HDSTimeout},

		{"rtmp-proxy", a.RTMPProxy},
		{"rtmp-rtmpdump", a.RTMPRTMPDump},
		{"rtmp-timeout", a.RTMPTimeout},

		{"ffmpeg-ffmpeg", a.FFmpegFFmpeg},
		{"ffmpeg-verbose", a.FFmpegVerbose},
		{"ffmpeg-verbose-path", a.FFmpegVerbosePath},
		{"ffmpeg-video-transcode", a.FFmpegVideoTranscode},
		{"ffmpeg-audio-transcode", a.FFmpegAudioTranscode},

		{"subprocess-errorlog", a.SubprocessErrorlog},
		{"subprocess-errorlog-path", a.SubprocessErrorlogPath},
		{"locale", a.Locale},
	}
}

// keyValues turns repeated KEY=VALUE items into a map. Items without "="
// are skipped.
func keyValues(items []string) map[string]string {
	if len(items) == 0 {
		return nil
	}
	m := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m
}
