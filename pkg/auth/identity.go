package auth

import (
	"net"
	"net/http"
	"strings"
)

// Role classifies the caller by presented API key.
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	}
	return "unauth"
}

// SecConfig carries the request-authentication settings for the gateway
// middleware.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

// authenticate resolves the caller's role from the API key presented in
// X-API-Key or an Authorization bearer.
func authenticate(r *http.Request, cfg SecConfig) (Role, string, bool) {
	key := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if key == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			bearer := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			// JWTs ride the same header but are handled by the identity
			// middleware, not the key gateway
			if !strings.Contains(bearer, ".") {
				key = bearer
			}
		}
	}
	if key == "" {
		return RoleUnauth, "", false
	}
	if _, ok := cfg.AdminKeys[key]; ok {
		return RoleAdmin, key, true
	}
	if _, ok := cfg.BackendKeys[key]; ok {
		return RoleBackend, key, true
	}
	if _, ok := cfg.FrontendKeys[key]; ok {
		return RoleFrontend, key, true
	}
	return RoleUnauth, key, true
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func ipWhitelisted(ip string, whitelist []string) bool {
	parsed := net.ParseIP(ip)
	for _, w := range whitelist {
		if w == ip {
			return true
		}
		if _, cidr, err := net.ParseCIDR(w); err == nil && parsed != nil && cidr.Contains(parsed) {
			return true
		}
	}
	return false
}
