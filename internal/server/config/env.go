package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over the file.
//
// Recognized variables:
//
//	ADDRESS                 HTTP bind address
//	DATABASE_DSN            PostgreSQL DSN
//	JWT_SECRET              access-token signing secret
//	JWT_REFRESH_SECRET      refresh-token signing secret
//	JWT_EXPIRES_IN          access token TTL (Go duration, e.g. "15m")
//	JWT_REFRESH_EXPIRES_IN  refresh token TTL (e.g. "168h")
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
func parseEnv(config *Config) {
	_ = godotenv.Load()

	config.EndpointAddr = getEnv("ADDRESS", config.EndpointAddr)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.AccessTokenSecret = getEnv("JWT_SECRET", config.AccessTokenSecret)
	config.RefreshTokenSecret = getEnv("JWT_REFRESH_SECRET", config.RefreshTokenSecret)

	config.AccessTokenValidityDuration = getEnvDuration("JWT_EXPIRES_IN", config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = getEnvDuration("JWT_REFRESH_EXPIRES_IN", config.RefreshTokenValidityDuration)

	config.S3RootUser = getEnv("S3_ROOT_USER", config.S3RootUser)
	config.S3RootPassword = getEnv("S3_ROOT_PASSWORD", config.S3RootPassword)
	config.S3Bucket = getEnv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getEnv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", config.S3BaseEndpoint)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
