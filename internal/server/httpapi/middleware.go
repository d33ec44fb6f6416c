package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TokenVerifier validates access tokens for the auth middleware.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*auth.Identity, error)
}

type ctxKey string

const (
	userIDKey ctxKey = "userID"
	emailKey  ctxKey = "email"
)

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth verifies the Bearer access token and stores the subject on the
// request context. Verification failure is answered with the same 401
// envelope regardless of cause.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		id, err := h.tokens.VerifyAccessToken(strings.TrimPrefix(header, common.BearerPrefix))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id.UserID)
		ctx = context.WithValue(ctx, emailKey, id.Email)
		next(w, r.WithContext(ctx))
	}
}

var httpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postboard_http_requests_total",
		Help: "HTTP requests processed, by method, route pattern and status code.",
	},
	[]string{"method", "path", "code"},
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withMetrics counts every request against httpRequestsTotal. The route
// pattern (not the raw URL) is used as the path label to keep cardinality
// bounded.
func withMetrics(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
}
