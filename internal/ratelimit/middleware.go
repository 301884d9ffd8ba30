package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"travelbook/internal/apperr"
	"travelbook/internal/dispatch"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	PerMinute     int
	Burst         int
	AuthPerMinute int
	AuthBurst     int
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header is
	// believed. Empty means the header is ignored.
	TrustedProxies []string
}

type Middleware struct {
	general    Limiter
	auth       Limiter
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	trusted    []netip.Prefix
}

type Option func(*Middleware)

func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(m *Middleware) {
		m.trusted = append(m.trusted, prefixes...)
	}
}

// ParseProxies accepts bare IPs and CIDRs.
func ParseProxies(entries []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// New builds the request limiter. client may be nil, in which case only
// the in-process limiter is used.
func New(cfg Config, client redis.Cmdable, d *dispatch.Dispatcher, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	trusted, err := ParseProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("ignoring trusted proxies", "error", err)
		trusted = nil
	}
	var general, auth Limiter = NewLocal(cfg.PerMinute, cfg.Burst), NewLocal(cfg.AuthPerMinute, cfg.AuthBurst)
	if client != nil {
		general = NewFallback(NewRedis(client, "ratelimit:ip", cfg.PerMinute), general, logger)
		auth = NewFallback(NewRedis(client, "ratelimit:auth", cfg.AuthPerMinute), auth, logger)
	}
	return NewMiddleware(general, auth, d, logger, WithTrustedProxies(trusted...))
}

func NewMiddleware(general, auth Limiter, d *dispatch.Dispatcher, logger *slog.Logger, opts ...Option) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{general: general, auth: auth, dispatcher: d, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)
		if ip == "" || isExempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		if isCredentialEndpoint(r) && !m.allow(r, m.auth, ip) {
			m.reject(w, r)
			return
		}
		if !m.allow(r, m.general, ip) {
			m.reject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow fails open: a limiter error never blocks traffic.
func (m *Middleware) allow(r *http.Request, limiter Limiter, key string) bool {
	allowed, err := limiter.Allow(r.Context(), key)
	if err != nil {
		m.logger.ErrorContext(r.Context(), "rate limiter error", "error", err)
		return true
	}
	return allowed
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	m.dispatcher.WriteError(w, r, apperr.RateLimited())
}

func isExempt(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	default:
		return r.Method == http.MethodOptions
	}
}

func isCredentialEndpoint(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	switch r.URL.Path {
	case "/api/auth/login", "/api/auth/register":
		return true
	default:
		return false
	}
}

// clientIP keys on the connection peer. X-Forwarded-For is only read when
// the peer is a trusted proxy, and then the rightmost hop that is not itself
// trusted wins, since everything left of it is client supplied.
func (m *Middleware) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !m.isTrusted(peer) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return host
		}
		if !m.isTrusted(hop) {
			return hop.String()
		}
	}
	return host
}

func (m *Middleware) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
