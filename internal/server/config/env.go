package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables. Duration values
// accept time.ParseDuration syntax ("15m", "72h").
//
// Recognized variables:
//
//	ADDRESS, DATABASE_DSN,
//	ACCESS_TOKEN_SECRET, ACCESS_TOKEN_EXPIRY,
//	REFRESH_TOKEN_SECRET, REFRESH_TOKEN_EXPIRY,
//	BCRYPT_COST, UPLOAD_DIR,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
func parseEnv(config *Config) error {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	setDuration := func(name string, dst *time.Duration) error {
		v, ok := os.LookupEnv(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	setString("ADDRESS", &config.Address)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("ACCESS_TOKEN_SECRET", &config.AccessTokenSecret)
	setString("REFRESH_TOKEN_SECRET", &config.RefreshTokenSecret)
	setString("UPLOAD_DIR", &config.UploadDir)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if err := setDuration("ACCESS_TOKEN_EXPIRY", &config.AccessTokenExpiry); err != nil {
		return err
	}
	if err := setDuration("REFRESH_TOKEN_EXPIRY", &config.RefreshTokenExpiry); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing BCRYPT_COST: %w", err)
		}
		config.BcryptCost = cost
	}

	return nil
}
