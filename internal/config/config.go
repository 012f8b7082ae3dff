// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all recognized environment options.
type Config struct {
	Port int `env:"PORT" envDefault:"3000"`

	// DatabaseURL is the SQLite database path. DatabaseAuthToken is accepted
	// for parity with hosted-database deployments but the embedded driver
	// does not use it.
	DatabaseURL       string `env:"DATABASE_URL" envDefault:"./reports.db"`
	DatabaseAuthToken string `env:"DATABASE_AUTH_TOKEN"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI" envDefault:"http://localhost:3000/oauth2callback"`

	DriveRootFolderID string `env:"DRIVE_ROOT_FOLDER_ID"`
	DriveTokenFile    string `env:"DRIVE_TOKEN_FILE" envDefault:"./drive_token.json"`

	UploadsDir string `env:"UPLOADS_DIR" envDefault:"./uploads"`

	// RunMode controls developer conveniences such as auto-opening the OAuth
	// consent URL from the drive-auth CLI.
	RunMode string `env:"RUN_MODE" envDefault:"production"`
}

// DriveConfigured reports whether enough OAuth configuration is present to
// attempt remote uploads.
func (c Config) DriveConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads a .env file when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
