package middleware

import (
	"net/http"

	"github.com/kevin07696/stripe-payment-service/pkg/resilience"
)

// Timeout bounds each request by the handler layer deadline.
// A request that already carries a shorter deadline keeps it.
func Timeout(config *resilience.TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := config.HandlerContext(r.Context())
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
