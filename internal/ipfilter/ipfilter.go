// Package ipfilter restricts HTTP endpoints to configured client networks
package ipfilter

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Filter checks client addresses against allowed networks.
// An empty filter allows everyone.
type Filter struct {
	nets   []*net.IPNet
	logger *slog.Logger
}

// New parses IPs and CIDRs; a single IP becomes a host network
func New(allowed []string, logger *slog.Logger) (*Filter, error) {
	f := &Filter{logger: logger}

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
			f.nets = append(f.nets, ipNet)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP %q", entry)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		f.nets = append(f.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	return f, nil
}

// Enabled reports whether any network restriction is configured
func (f *Filter) Enabled() bool {
	return len(f.nets) > 0
}

// Allowed reports whether ip may access the endpoint
func (f *Filter) Allowed(ip net.IP) bool {
	if !f.Enabled() {
		return true
	}
	if ip == nil {
		return false
	}
	for _, n := range f.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware rejects requests from addresses outside the allowed networks.
// It reads r.RemoteAddr, so chi's RealIP middleware should run first when
// the service sits behind a proxy.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ip := remoteIP(r.RemoteAddr)
		if !f.Allowed(ip) {
			f.logger.Warn("access denied", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func remoteIP(addr string) net.IP {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(addr)
	}
	return net.ParseIP(host)
}
