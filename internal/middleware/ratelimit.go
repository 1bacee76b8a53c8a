package middleware

import (
	"net/http"

	"postline-server/pkg/response"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewIPRateLimiter limits by client IP using an in-memory store.
// rateFormatted: "20-M", "1000-H", "5-S". An empty rate disables limiting.
// X-Forwarded-For is only honoured when trustProxy is set.
func NewIPRateLimiter(rateFormatted string, trustProxy bool) (func(http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return noopMiddleware, nil
	}

	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(memory.NewStore(), rate, limiter.WithTrustForwardHeader(trustProxy))
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			RecordAuthFailure("RATE_LIMIT_EXCEEDED")
			response.TooManyRequests(w)
		}),
	)
	return mw.Handler, nil
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
