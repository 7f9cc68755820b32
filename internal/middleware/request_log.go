package middleware

import (
	"net/http"
	"time"

	"github.com/chatbubble/internal/logger"
)

// RequestLog пишет длительность запроса (см. logger.LogDuration) и отдельно логирует ответы 5xx.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := wrapWriter(w)
		start := time.Now()
		next.ServeHTTP(sw, r)
		logger.LogDuration("http "+r.Method+" "+r.URL.Path, start)
		if sw.status >= http.StatusInternalServerError {
			logger.Errorf("http %s %s -> %d", r.Method, r.URL.Path, sw.status)
		}
	})
}
