package middleware

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

// RateLimit limits requests per client IP.
func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	period := config.Period
	if period <= 0 {
		period = time.Second
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  int64(config.RequestsPerPeriod),
	})
	return stdlibmw.NewMiddleware(instance).Handler
}
