package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"saborlimeno/gorest/logging"
	"saborlimeno/gorest/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	infoKey
)

// RequestInfo travels with a request so outer middleware can see what inner
// middleware learned about it.
type RequestInfo struct {
	ID     string
	UserID int
}

// Info returns the request info set by RequestID, or nil.
func Info(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(infoKey).(*RequestInfo)
	return info
}

// RequestID tags each request with an id, echoed in X-Request-ID, and puts a
// logger carrying it into the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), infoKey, &RequestInfo{ID: id})
		ctx = logging.WithContext(ctx, logging.FromContext(ctx).With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder.
func (rw *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.Status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *StatusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog writes one structured line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := NewStatusRecorder(w)
		next.ServeHTTP(rw, r)

		logging.FromContext(r.Context()).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Recover turns a panic in a handler into a 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context()).Error("panic in handler", "panic", rec, "path", r.URL.Path)
				WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects write requests whose body is not a non-empty JSON document.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			WriteError(w, http.StatusUnsupportedMediaType, "Content-Type header must be application/json")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "error reading request body")
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			WriteError(w, http.StatusBadRequest, "request body is empty")
			return
		}
		if !json.Valid(body) {
			WriteError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// BearerToken extracts the session token from the Authorization header,
// falling back to a bare "token" header.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get("token"))
}

// Authenticate puts the session's user into the request context. With
// optional set, a request without credentials passes through as a guest;
// credentials that do not resolve are always rejected.
func Authenticate(auth Authenticator, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasCredentials := r.Header.Get("Authorization") != "" || r.Header.Get("token") != ""
			if !hasCredentials {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := auth.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				logging.FromContext(r.Context()).Debug("rejected session token", "error", err)
				WriteError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}

			if info := Info(r.Context()); info != nil {
				info.UserID = user.ID
			}
			ctx := WithUser(r.Context(), user)
			ctx = logging.WithContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only authenticated users holding role.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil {
				WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if user.Role != role {
				WriteError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the authenticated user, or nil for guests.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WriteError writes {"message": msg} with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
