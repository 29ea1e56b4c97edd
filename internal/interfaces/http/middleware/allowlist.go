package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SourceAllowlist restricts an endpoint to a set of peer IPs or CIDR
// ranges. Gateway callback URLs are public by necessity; this narrows them
// to the gateway's published addresses. An empty allowlist admits everyone.
func SourceAllowlist(entries []string) gin.HandlerFunc {
	var nets []*net.IPNet
	var ips []net.IP
	for _, entry := range entries {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}

	return func(c *gin.Context) {
		if len(nets) == 0 && len(ips) == 0 {
			c.Next()
			return
		}

		clientIP := net.ParseIP(c.ClientIP())
		if clientIP != nil {
			for _, ip := range ips {
				if ip.Equal(clientIP) {
					c.Next()
					return
				}
			}
			for _, ipNet := range nets {
				if ipNet.Contains(clientIP) {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Source address not allowed",
			},
		})
	}
}
