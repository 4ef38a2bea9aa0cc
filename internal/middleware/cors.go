package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows local development origins, the listed origins, and https
// origins under any of the given host suffixes.
func CORS(origins, suffixes []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return originAllowed(origin, allowed, suffixes)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func originAllowed(origin string, allowed map[string]struct{}, suffixes []string) bool {
	if _, ok := allowed[origin]; ok {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return u.Scheme == "http" || u.Scheme == "https"
	}

	if u.Scheme != "https" {
		return false
	}
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
