package utils

import (
	"net"
	"net/http"
	"strings"
)

func RealClientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		if i := strings.Index(xfwd, ","); i > 0 {
			return strings.TrimSpace(xfwd[:i])
		}
		return xfwd
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
