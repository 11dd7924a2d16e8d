package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
)

// GoogleConfig holds the credentials for the Google Sheets sink.
type GoogleConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	TokenFile          string
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultGoogleConfig returns a GoogleConfig with sensible defaults.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// LoadFromEnv fills unset credentials from GOOGLE_SHEETS_* variables.
func (c *GoogleConfig) LoadFromEnv() {
	if c.ClientID == "" {
		c.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		c.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if c.RefreshToken == "" {
		c.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if c.ServiceAccountPath == "" {
		c.ServiceAccountPath = os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	}
}

// HasCredentials reports whether any authentication method is present.
func (c *GoogleConfig) HasCredentials() bool {
	return c.ServiceAccountPath != "" || (c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "")
}

// Validate checks if the configuration is valid.
func (c *GoogleConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: provide either a service account path or OAuth2 credentials", common.ErrMissingConfig)
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}

	return nil
}
