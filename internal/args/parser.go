package args

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

// Parser turns CLI-style token lists into Args.
//
// Each Parse builds a fresh pflag.FlagSet, so a Parser is safe for
// concurrent use. Repeated scalar options follow last-wins semantics.
type Parser struct {
	fs        afero.Fs
	resolvers []resolver.Resolver
}

// NewParser returns a parser that also accepts the namespaced arguments
// of every given resolver. Argument files are read from fs.
func NewParser(fs afero.Fs, resolvers ...resolver.Resolver) *Parser {
	return &Parser{fs: fs, resolvers: resolvers}
}

// Parse expands @file tokens and parses arglist. Unknown flags are
// dropped when ignoreUnknown is set and reported as an error otherwise.
func (p *Parser) Parse(arglist []string, ignoreUnknown bool) (*Args, error) {
	tokens, err := expandArgFiles(p.fs, arglist, 0)
	if err != nil {
		return nil, err
	}

	a := &Args{plugins: make(map[string][]any, len(p.resolvers))}
	flags := pflag.NewFlagSet("liveproxy", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.ParseErrorsAllowlist.UnknownFlags = ignoreUnknown

	registerOptions(flags, a)
	collect := p.registerResolvers(flags)

	if err := flags.Parse(tokens); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}

	for name, values := range collect {
		out := make([]any, len(values))
		for i, get := range values {
			out[i] = get()
		}
		a.plugins[name] = out
	}
	a.canonicalize(flags.Args())
	return a, nil
}

// registerResolvers binds one typed slot per resolver argument. The
// returned getters are aligned with each resolver's Arguments().All().
func (p *Parser) registerResolvers(flags *pflag.FlagSet) map[string][]func() any {
	collect := make(map[string][]func() any, len(p.resolvers))
	for _, r := range p.resolvers {
		name := r.Name()
		getters := make([]func() any, 0, r.Arguments().Len())
		for _, arg := range r.Arguments().All() {
			flag := arg.FlagName(name)
			switch arg.Kind {
			case resolver.KindBool:
				v := new(bool)
				flags.BoolVar(v, flag, cast.ToBool(arg.Default), arg.Help)
				getters = append(getters, func() any { return *v })
			case resolver.KindInt:
				v := new(int)
				flags.IntVar(v, flag, cast.ToInt(arg.Default), arg.Help)
				getters = append(getters, func() any { return *v })
			case resolver.KindDuration:
				v := new(time.Duration)
				flags.DurationVar(v, flag, cast.ToDuration(arg.Default), arg.Help)
				getters = append(getters, func() any { return *v })
			default:
				v := new(string)
				flags.StringVar(v, flag, cast.ToString(arg.Default), arg.Help)
				getters = append(getters, func() any { return *v })
			}
		}
		collect[name] = getters
	}
	return collect
}

func registerOptions(f *pflag.FlagSet, a *Args) {
	f.StringVar(&a.URL, "url", "", "stream URL to resolve")
	f.StringVar(&a.stream, "stream", "", "comma separated list of stream names, in order of preference")
	f.StringArrayVar(&a.Config, "config", nil, "load options from this file (repeatable)")

	f.StringVar(&a.HTTPProxy, "http-proxy", "", "HTTP proxy for HTTP and HTTPS requests")
	f.StringVar(&a.HTTPSProxy, "https-proxy", "", "HTTPS proxy for HTTPS requests")
	f.StringArrayVar(&a.HTTPCookie, "http-cookie", nil, "KEY=VALUE cookie (repeatable)")
	f.StringToStringVar(&a.HTTPCookies, "http-cookies", nil, "KEY=VALUE,... cookies")
	f.StringArrayVar(&a.HTTPHeader, "http-header", nil, "KEY=VALUE header (repeatable)")
	f.StringToStringVar(&a.HTTPHeaders, "http-headers", nil, "KEY=VALUE,... headers")
	f.StringArrayVar(&a.HTTPQueryParam, "http-query-param", nil, "KEY=VALUE query parameter (repeatable)")
	f.StringToStringVar(&a.HTTPQueryParams, "http-query-params", nil, "KEY=VALUE,... query parameters")
	f.BoolVar(&a.HTTPIgnoreEnv, "http-ignore-env", false, "ignore proxy settings from the environment")
	f.BoolVar(&a.HTTPNoSSLVerify, "http-no-ssl-verify", false, "do not verify TLS certificates")
	f.BoolVar(&a.HTTPDisableDH, "http-disable-dh", false, "disable Diffie Hellman key exchange")
	f.StringVar(&a.HTTPSSLCert, "http-ssl-cert", "", "PEM file holding client certificate and key")
	f.StringSliceVar(&a.HTTPSSLCertCrtKey, "http-ssl-cert-crt-key", nil, "CRT,KEY client certificate and key files")
	f.DurationVar(&a.HTTPTimeout, "http-timeout", 0, "timeout for HTTP requests")

	f.DurationVar(&a.HTTPStreamTimeout, "http-stream-timeout", 0, "read timeout for HTTP streams")
	f.IntVar(&a.RingbufferSize, "ringbuffer-size", 0, "ring buffer size in bytes")
	f.IntVar(&a.StreamSegmentAttempts, "stream-segment-attempts", 0, "segment download attempts")
	f.IntVar(&a.StreamSegmentThreads, "stream-segment-threads", 0, "segment download threads")
	f.DurationVar(&a.StreamSegmentTimeout, "stream-segment-timeout", 0, "segment download timeout")
	f.DurationVar(&a.StreamTimeout, "stream-timeout", 0, "read timeout for segmented streams")

	f.IntVar(&a.HLSLiveEdge, "hls-live-edge", 0, "segments from the live edge to start at")
	f.IntVar(&a.HLSSegmentAttempts, "hls-segment-attempts", 0, "HLS segment download attempts")
	f.IntVar(&a.HLSPlaylistReloadAttempts, "hls-playlist-reload-attempts", 0, "HLS playlist reload attempts")
	f.IntVar(&a.HLSSegmentThreads, "hls-segment-threads", 0, "HLS segment download threads")
	f.DurationVar(&a.HLSSegmentTimeout, "hls-segment-timeout", 0, "HLS segment download timeout")
	f.StringSliceVar(&a.HLSSegmentIgnoreNames, "hls-segment-ignore-names", nil, "HLS segment names to skip")
	f.DurationVar(&a.HLSTimeout, "hls-timeout", 0, "HLS read timeout")
	f.StringSliceVar(&a.HLSAudioSelect, "hls-audio-select", nil, "HLS alternate audio languages")
	f.DurationVar(&a.HLSStartOffset, "hls-start-offset", 0, "HLS start offset")
	f.DurationVar(&a.HLSDuration, "hls-duration", 0, "HLS playback duration")
	f.BoolVar(&a.HLSLiveRestart, "hls-live-restart", false, "start HLS live streams from the beginning")

	f.Float64Var(&a.HDSLiveEdge, "hds-live-edge", 0, "seconds from the HDS live edge")
	f.IntVar(&a.HDSSegmentAttempts, "hds-segment-attempts", 0, "HDS segment download attempts")
	f.IntVar(&a.HDSSegmentThreads, "hds-segment-threads", 0, "HDS segment download threads")
	f.DurationVar(&a.HDSSegmentTimeout, "hds-segment-timeout", 0, "HDS segment download timeout")
	f.DurationVar(&a.HDSTimeout, "hds-timeout", 0, "HDS read timeout")

	f.StringVar(&a.RTMPProxy, "rtmp-proxy", "", "SOCKS proxy for RTMP streams")
	f.StringVar(&a.RTMPRTMPDump, "rtmp-rtmpdump", "", "rtmpdump executable")
	f.DurationVar(&a.RTMPTimeout, "rtmp-timeout", 0, "RTMP read timeout")

	f.StringVar(&a.FFmpegFFmpeg, "ffmpeg-ffmpeg", "", "ffmpeg executable")
	f.BoolVar(&a.FFmpegVerbose, "ffmpeg-verbose", false, "write ffmpeg output to stderr")
	f.StringVar(&a.FFmpegVerbosePath, "ffmpeg-verbose-path", "", "write ffmpeg output to this file")
	f.StringVar(&a.FFmpegVideoTranscode, "ffmpeg-video-transcode", "", "video codec for transcoding")
	f.StringVar(&a.FFmpegAudioTranscode, "ffmpeg-audio-transcode", "", "audio codec for transcoding")

	f.BoolVar(&a.SubprocessErrorlog, "subprocess-errorlog", false, "log subprocess errors to a temporary file")
	f.StringVar(&a.SubprocessErrorlogPath, "subprocess-errorlog-path", "", "log subprocess errors to this file")
	f.StringVar(&a.Locale, "locale", "", "locale used for language selection")
}
