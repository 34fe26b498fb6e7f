package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
	MatchLockTTL    = 30 * time.Second
)

const (
	DefaultHistoryLimit     = 20
	MaxHistoryLimit         = 100
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)
