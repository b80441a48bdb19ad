package session

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

// Profile is the transport configuration a client is built for. Requests
// whose OptionStore snapshots produce the same Profile share one client.
type Profile struct {
	HTTPProxy  string
	HTTPSProxy string
	SSLVerify  bool
	TrustEnv   bool
	CertFile   string
	KeyFile    string
	Timeout    time.Duration
}

// ProfileFrom extracts the transport settings from an OptionStore snapshot.
func ProfileFrom(opts *resolver.Options) Profile {
	p := Profile{
		HTTPProxy:  opts.String("http-proxy"),
		HTTPSProxy: opts.String("https-proxy"),
		SSLVerify:  opts.Bool("http-ssl-verify"),
		TrustEnv:   opts.Bool("http-trust-env"),
		Timeout:    opts.Duration("http-timeout"),
	}
	if pair := opts.StringSlice("http-ssl-cert-crt-key"); len(pair) == 2 {
		p.CertFile, p.KeyFile = pair[0], pair[1]
	} else if pem := opts.String("http-ssl-cert"); pem != "" {
		p.CertFile, p.KeyFile = pem, pem
	}
	return p
}

func (p Profile) proxy(req *http.Request) (*url.URL, error) {
	raw := p.HTTPProxy
	if req.URL.Scheme == "https" && p.HTTPSProxy != "" {
		raw = p.HTTPSProxy
	}
	if raw != "" {
		return url.Parse(raw)
	}
	if p.TrustEnv {
		return http.ProxyFromEnvironment(req)
	}
	return nil, nil
}

// ClientPool caches one resty client per transport Profile.
type ClientPool struct {
	clients      map[Profile]*resty.Client
	mu           sync.RWMutex
	maxIdleConns int
}

// NewClientPool creates a new client pool
func NewClientPool(maxIdleConns int) *ClientPool {
	return &ClientPool{
		clients:      make(map[Profile]*resty.Client),
		maxIdleConns: maxIdleConns,
	}
}

// GetClient returns the client for p, building it on first use.
func (p *ClientPool) GetClient(profile Profile) (*resty.Client, error) {
	p.mu.RLock()
	client, exists := p.clients[profile]
	p.mu.RUnlock()

	if exists {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists = p.clients[profile]; exists {
		return client, nil
	}

	transport, err := p.newTransport(profile)
	if err != nil {
		return nil, err
	}

	// 不设置 http.Client.Timeout：它会截断长时间的流传输
	client = resty.NewWithClient(&http.Client{Transport: transport})
	p.clients[profile] = client
	return client, nil
}

func (p *ClientPool) newTransport(profile Profile) (*http.Transport, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: !profile.SSLVerify, //nolint:gosec // --http-no-ssl-verify
		MinVersion:         tls.VersionTLS12,
	}
	if profile.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(profile.CertFile, profile.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	dialer := &net.Dialer{
		Timeout:   profile.Timeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 profile.proxy,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   profile.Timeout,
		ResponseHeaderTimeout: profile.Timeout,
		MaxIdleConnsPerHost:   p.maxIdleConns,
		IdleConnTimeout:       90 * time.Second,
	}, nil
}

// RemoveClient removes and closes the client for profile.
func (p *ClientPool) RemoveClient(profile Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[profile]; exists {
		closeClient(client)
		delete(p.clients, profile)
	}
}

// CloseAll closes all clients in the pool
func (p *ClientPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.clients {
		closeClient(client)
	}
	p.clients = make(map[Profile]*resty.Client)
}

func closeClient(client *resty.Client) {
	client.Client().CloseIdleConnections()
	_ = client.Close()
}
