package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stuffkit/backend/internal/interfaces/http/dto"
)

// DocsAccess restricts the API documentation endpoint.
type DocsAccess struct {
	RequireAuth bool     // run the authentication handler first
	AllowedIPs  []string // single IPs or CIDR ranges; empty allows every client
}

// DocsGuard protects the documentation routes. Clients outside AllowedIPs
// get insufficient_permissions; with RequireAuth, authenticate must let the
// request through.
func DocsGuard(access DocsAccess, authenticate gin.HandlerFunc) gin.HandlerFunc {
	var (
		ips  []net.IP
		nets []*net.IPNet
	)
	for _, entry := range access.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}
	restricted := len(access.AllowedIPs) > 0

	return func(c *gin.Context) {
		if restricted && !ipAllowed(net.ParseIP(c.ClientIP()), ips, nets) {
			Abort(c, dto.Forbidden("Access to API documentation is restricted"))
			return
		}
		if access.RequireAuth && authenticate != nil {
			authenticate(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

func ipAllowed(ip net.IP, ips []net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
