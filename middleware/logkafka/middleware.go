package logkafka

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/middleware"
)

// Middleware ships one entry per request. It must sit inside
// middleware.RequestID so the request id and user are known.
func (s *Shipper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := middleware.NewStatusRecorder(w)
		next.ServeHTTP(rw, r)

		traceID, userID := "", "anonymous"
		if info := middleware.Info(r.Context()); info != nil {
			traceID = info.ID
			if info.UserID != 0 {
				userID = strconv.Itoa(info.UserID)
			}
		}

		level := "info"
		if rw.Status >= http.StatusInternalServerError {
			level = "error"
		}
		extra := map[string]string{
			"user_id":     userID,
			"ip":          clientIP(r),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      strconv.Itoa(rw.Status),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			"user_agent":  r.UserAgent(),
		}

		ctx := context.WithoutCancel(r.Context())
		if err := s.Ship(ctx, level, "request completed", traceID, extra); err != nil {
			logging.FromContext(ctx).Warn("ship access log", "error", err)
		}
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
