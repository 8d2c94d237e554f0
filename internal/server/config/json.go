package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clipstream/clipstream/internal/flagx"
	"github.com/clipstream/clipstream/internal/timex"
)

// JsonConfig is the DTO for the optional JSON configuration file. It uses
// timex.Duration for the expiry fields, which accepts both duration strings
// such as "15m" and integer nanoseconds. Zero-valued fields are skipped on
// overlay so a partial file only overrides what it names.
type JsonConfig struct {
	Address            string         `json:"address"`
	DatabaseDSN        string         `json:"database_dsn"`
	AccessTokenSecret  string         `json:"access_token_secret"`
	AccessTokenExpiry  timex.Duration `json:"access_token_expiry"`
	RefreshTokenSecret string         `json:"refresh_token_secret"`
	RefreshTokenExpiry timex.Duration `json:"refresh_token_expiry"`
	BcryptCost         int            `json:"bcrypt_cost"`
	UploadDir          string         `json:"upload_dir"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config. The file path comes from the -c or -config command-line flags; when
// neither is set, no file is loaded.
func parseJson(config *Config) error {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if c.Address != "" {
		config.Address = c.Address
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AccessTokenSecret != "" {
		config.AccessTokenSecret = c.AccessTokenSecret
	}
	if c.AccessTokenExpiry.Duration != 0 {
		config.AccessTokenExpiry = c.AccessTokenExpiry.Duration
	}
	if c.RefreshTokenSecret != "" {
		config.RefreshTokenSecret = c.RefreshTokenSecret
	}
	if c.RefreshTokenExpiry.Duration != 0 {
		config.RefreshTokenExpiry = c.RefreshTokenExpiry.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.UploadDir != "" {
		config.UploadDir = c.UploadDir
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}

	return nil
}
