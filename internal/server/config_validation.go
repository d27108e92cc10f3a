// config_validation.go - Startup validation of the environment.
//
// Every variable is checked up front so a bad deployment fails with the
// full list of problems instead of at the first upload.
package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects validation errors.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		errors: make([]ConfigValidationError, 0),
	}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidateAddr checks a listen address of the form "host:port" or ":port".
func (v *ConfigValidator) ValidateAddr(key, value string) {
	if value == "" {
		return
	}

	i := strings.LastIndex(value, ":")
	if i < 0 {
		v.AddError(key, "must be host:port or :port")
		return
	}

	port, err := strconv.Atoi(value[i+1:])
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	// Port 0 asks the kernel for a free port.
	if port < 0 || port > 65535 {
		v.AddError(key, "port must be between 0 and 65535")
	}
}

// ValidateURL validates that a value is an http(s) URL.
func (v *ConfigValidator) ValidateURL(key, value string) {
	if value == "" {
		return
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}

	for _, opt := range allowed {
		if value == opt {
			return
		}
	}

	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}

	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateDuration validates a Go duration string. Zero is allowed only when
// allowZero is set.
func (v *ConfigValidator) ValidateDuration(key, value string, allowZero bool) {
	if value == "" {
		return
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		v.AddError(key, "must be a valid duration (e.g., 24h, 90m)")
		return
	}
	if d < 0 || (d == 0 && !allowZero) {
		v.AddError(key, "must be a positive duration")
	}
}

// ValidateAllOrNone requires that either every key in group is set or none is.
func (v *ConfigValidator) ValidateAllOrNone(getenv func(string) string, group ...string) {
	var set, missing []string
	for _, key := range group {
		if getenv(key) == "" {
			missing = append(missing, key)
		} else {
			set = append(set, key)
		}
	}
	if len(set) > 0 && len(missing) > 0 {
		v.AddError(strings.Join(missing, ", "),
			fmt.Sprintf("must be set together with %s", strings.Join(set, ", ")))
	}
}

// ValidateAllConfiguration validates the environment read through getenv.
func ValidateAllConfiguration(getenv func(string) string) error {
	v := NewConfigValidator()

	v.ValidateAddr("XRP_ADDR", getenv("XRP_ADDR"))
	v.ValidateAddr("XRP_ADMIN_ADDR", getenv("XRP_ADMIN_ADDR"))
	v.ValidatePositiveInt("XRP_MAX_UPLOAD_BYTES", getenv("XRP_MAX_UPLOAD_BYTES"))

	if _, err := ParseNaming(getenv("XRP_NAMING")); err != nil {
		v.AddError("XRP_NAMING", "must be one of: timestamp, unique")
	}

	if dir := getenv("XRP_UPLOAD_DIR"); dir != "" && strings.TrimSpace(dir) == "" {
		v.AddError("XRP_UPLOAD_DIR", "must not be blank")
	}

	if dbURL := getenv("DATABASE_URL"); dbURL != "" {
		if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	// Object storage mirror
	v.ValidateAllOrNone(getenv, "XRP_S3_ENDPOINT", "XRP_S3_ACCESS_KEY", "XRP_S3_SECRET_KEY", "XRP_BUCKET")
	if endpoint := getenv("XRP_S3_ENDPOINT"); strings.Contains(endpoint, "://") {
		v.ValidateURL("XRP_S3_ENDPOINT", endpoint)
	}

	// Retention
	v.ValidateDuration("XRP_RETENTION", getenv("XRP_RETENTION"), true)
	v.ValidateDuration("XRP_RETENTION_INTERVAL", getenv("XRP_RETENTION_INTERVAL"), false)

	// Log configuration
	v.ValidateEnum("XRP_LOG_FORMAT", getenv("XRP_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("XRP_LOG_LEVEL", strings.ToLower(getenv("XRP_LOG_LEVEL")), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("XRP_ENV", getenv("XRP_ENV"), []string{"development", "production", "staging"})

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}

// WarnOnOptionalMissingConfig logs the optional features that are off.
func WarnOnOptionalMissingConfig(log *Logger, getenv func(string) string) {
	warnings := make([]string, 0)

	if getenv("DATABASE_URL") == "" {
		warnings = append(warnings, "DATABASE_URL not set - upload ledger disabled")
	}
	if getenv("XRP_S3_ENDPOINT") == "" {
		warnings = append(warnings, "XRP_S3_ENDPOINT not set - artifact mirror disabled")
	}
	if getenv("XRP_ADMIN_ADDR") == "" {
		warnings = append(warnings, "XRP_ADMIN_ADDR not set - health and metrics endpoints disabled")
	}

	if len(warnings) > 0 {
		log.Info("configuration warnings", map[string]interface{}{
			"count":    len(warnings),
			"warnings": warnings,
		})
	}
}
