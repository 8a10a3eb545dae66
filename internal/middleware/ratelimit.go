package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/benvon/carbon-tracker/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRateLimit is used when neither the settings table nor the caller supplies a rate
const DefaultRateLimit = "10-S"

// NewRedisLimiterStore creates the shared counter store for rate limiting
func NewRedisLimiterStore(client *redis.Client) (limiter.Store, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "carbon_tracker_ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return store, nil
}

// NewRateLimitReloader creates per-client-IP rate limiting whose rate ("5-S", "100-M")
// is read from the ratelimit.rate setting. The default rate is stored when none exists.
func NewRateLimitReloader(store limiter.Store, settings database.SettingsStore, defaultRate string, log *zap.Logger, interval time.Duration) *Reloader {
	if defaultRate == "" {
		defaultRate = DefaultRateLimit
	}
	if log == nil {
		log = zap.NewNop()
	}

	build := func(ctx context.Context) (func(http.Handler) http.Handler, error) {
		rateStr := defaultRate
		setting, err := settings.Get(ctx, models.SettingRateLimit)
		switch {
		case err != nil:
			log.Warn("failed_to_load_ratelimit_setting_using_default",
				zap.Error(err),
				zap.String("default_rate", defaultRate),
			)
		case setting != nil:
			rateStr = setting.Value
		default:
			if err := settings.Set(ctx, models.SettingRateLimit, defaultRate); err != nil {
				log.Error("failed_to_save_default_ratelimit_setting",
					zap.Error(err),
					zap.String("default_rate", defaultRate),
				)
			}
		}

		rate, err := limiter.NewRateFromFormatted(rateStr)
		if err != nil {
			log.Error("failed_to_parse_rate_limit_using_default",
				zap.Error(err),
				zap.String("rate", rateStr),
				zap.String("default_rate", defaultRate),
			)
			if rate, err = limiter.NewRateFromFormatted(defaultRate); err != nil {
				return nil, fmt.Errorf("invalid default rate %q: %w", defaultRate, err)
			}
		}

		lim := limiter.New(store, rate)
		return func(next http.Handler) http.Handler {
			mw := stdlibmw.NewMiddleware(lim,
				stdlibmw.WithKeyGetter(request.ClientIP),
				stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
					respondErrorJSON(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, retry later", log)
				}),
				stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
					// fail open: a store outage must not take the API down
					log.Warn("rate_limit_store_error", zap.Error(err))
					next.ServeHTTP(w, r)
				}),
			)
			return mw.Handler(next)
		}, nil
	}
	return NewReloader("ratelimit", build, log, interval)
}

// NewRedisClient connects to redisURL and verifies the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
