package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/carbon-tracker/internal/database"
	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultCORSOrigin = "http://localhost:3000"

// NewCORSReloader creates CORS middleware whose allowed origins come from the
// cors.allowed_origins setting, falling back to the comma-separated fallback (FRONTEND_URL).
func NewCORSReloader(settings database.SettingsStore, fallback string, log *zap.Logger, interval time.Duration) *Reloader {
	if log == nil {
		log = zap.NewNop()
	}
	build := func(ctx context.Context) (func(http.Handler) http.Handler, error) {
		raw := fallback
		setting, err := settings.Get(ctx, models.SettingAllowedOrigins)
		if err != nil {
			log.Warn("failed_to_load_cors_setting_using_fallback", zap.Error(err))
		} else if setting != nil {
			raw = setting.Value
		}

		origins := database.SplitList(raw)
		if len(origins) == 0 {
			origins = []string{defaultCORSOrigin}
		}
		return cors.New(corsOptions(origins)).Handler, nil
	}
	return NewReloader("cors", build, log, interval)
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	}
}
