package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver extracts the caller's address, trusting forwarding headers only
// when the direct peer is a known proxy.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver trusts loopback and private ranges plus any extra CIDRs.
func NewIPResolver(extra ...string) (*IPResolver, error) {
	cidrs := append([]string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}, extra...)
	r := &IPResolver{}
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", c, err)
		}
		r.trusted = append(r.trusted, n)
	}
	return r, nil
}

func (r *IPResolver) isTrusted(ip net.IP) bool {
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the first valid X-Forwarded-For entry, then X-Real-IP,
// when the peer is trusted, and the peer address otherwise.
func (r *IPResolver) ClientIP(req *http.Request) string {
	direct, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		direct = req.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil || !r.isTrusted(ip) {
		return direct
	}
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}
