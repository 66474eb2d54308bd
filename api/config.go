package handler

import (
	"os"
	"strconv"
)

// Deal composition modes. The mode decides how categorical lead answers end
// up on the deal: as a comma-joined label-ID list, or written verbatim into
// named custom fields.
const (
	ModeLabels       = "labels"
	ModeCustomFields = "custom"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string
	Host string

	// Pipedrive API configuration
	PipedriveAPIKey  string
	PipedriveBaseURL string

	// Deal ownership. OwnerID must be a positive Pipedrive user id;
	// requests are rejected otherwise. OrgID is optional (0 = unset).
	OwnerID int
	OrgID   int

	// Deal composition mode: ModeLabels or ModeCustomFields
	DealFieldMode string

	// Visibility scope for created deals ("3" = entire company)
	DealVisibleTo string

	// Webhook security
	SecretToken string

	// Path to the YAML label/custom-field mapping tables
	LabelMapFile string

	// Notification email configuration
	AdminEmail   string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string

	// Logging configuration
	LogLevel string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	config := &Config{
		// Server defaults
		Port: getEnv("PORT", "8080"),
		Host: getEnv("HOST", "0.0.0.0"),

		// Pipedrive configuration
		PipedriveAPIKey:  getEnv("PIPEDRIVE_API_KEY", ""),
		PipedriveBaseURL: getEnv("PIPEDRIVE_BASE_URL", "https://api.pipedrive.com/v1"),
		OwnerID:          getEnvAsInt("PIPEDRIVE_OWNER_ID", 0),
		OrgID:            getEnvAsInt("PIPEDRIVE_ORG_ID", 0),
		DealFieldMode:    getEnv("DEAL_FIELD_MODE", ModeLabels),
		DealVisibleTo:    getEnv("DEAL_VISIBLE_TO", "3"),

		// Webhook secret
		SecretToken: getEnv("SECRET_TOKEN", ""),

		// Mapping tables
		LabelMapFile: getEnv("LABEL_MAP_FILE", "config/labels.yaml"),

		// Notification email
		AdminEmail:   getEnv("ADMIN_EMAIL", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "leads@localhost"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a fallback default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.LogLevel == "production" || os.Getenv("GIN_MODE") == "release"
}

// IsDebug returns true if verbose payload logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HasPipedriveConfig returns true if Pipedrive API key is configured
func (c *Config) HasPipedriveConfig() bool {
	return c.PipedriveAPIKey != ""
}

// HasMailConfig returns true if SMTP and an admin address are configured
func (c *Config) HasMailConfig() bool {
	return c.SMTPHost != "" && c.AdminEmail != ""
}
