package models

import "time"

// Setting keys stored in the settings table
const (
	SettingRateLimit      = "ratelimit.rate"
	SettingAllowedOrigins = "cors.allowed_origins"
)

// Setting is a hot-reloadable runtime setting (e.g. rate limit "5-S")
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
