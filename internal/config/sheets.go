package config

import (
	"path/filepath"

	"github.com/Veraticus/scanfill/internal/sheets"
	"github.com/spf13/viper"
)

// TokenFileName is the OAuth2 token file kept in the data directory.
const TokenFileName = "google-token.json"

// LoadGoogleConfig loads Google Sheets credentials from Viper and the environment.
// It follows this precedence:
// 1. Viper configuration (config file or SCANFILL_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
//
// Missing credentials are not an error here; the sink validates them when a
// project actually targets Google Sheets.
func LoadGoogleConfig() *sheets.GoogleConfig {
	config := sheets.DefaultGoogleConfig()

	if v := viper.GetString("sheets.google.service_account_path"); v != "" {
		config.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.google.client_id"); v != "" {
		config.ClientID = v
	}
	if v := viper.GetString("sheets.google.client_secret"); v != "" {
		config.ClientSecret = v
	}
	if v := viper.GetString("sheets.google.refresh_token"); v != "" {
		config.RefreshToken = v
	}
	if v := viper.GetString("sheets.google.token_file"); v != "" {
		config.TokenFile = ExpandPath(v)
	}
	if config.TokenFile == "" {
		if dir := viper.GetString("data.dir"); dir != "" {
			config.TokenFile = filepath.Join(ExpandPath(dir), TokenFileName)
		}
	}
	if viper.IsSet("sheets.google.retry_attempts") {
		config.RetryAttempts = viper.GetInt("sheets.google.retry_attempts")
	}
	if viper.IsSet("sheets.google.retry_delay") {
		config.RetryDelay = viper.GetDuration("sheets.google.retry_delay")
	}

	config.LoadFromEnv()
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	if config.RefreshToken == "" && config.TokenFile != "" {
		if token, err := sheets.LoadToken(config.TokenFile); err == nil {
			config.RefreshToken = token.RefreshToken
		}
	}

	return &config
}
