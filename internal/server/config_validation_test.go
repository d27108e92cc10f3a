package server

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestValidateAllConfiguration_Empty(t *testing.T) {
	assert.NoError(t, ValidateAllConfiguration(envFrom(nil)))
}

func TestValidateAllConfiguration_Valid(t *testing.T) {
	err := ValidateAllConfiguration(envFrom(map[string]string{
		"XRP_ADDR":               ":3030",
		"XRP_ADMIN_ADDR":         "127.0.0.1:9090",
		"XRP_MAX_UPLOAD_BYTES":   "5000000",
		"XRP_NAMING":             "unique",
		"DATABASE_URL":           "postgres://u:p@db:5432/xrpals?sslmode=disable",
		"XRP_S3_ENDPOINT":        "http://minio:9000",
		"XRP_S3_ACCESS_KEY":      "minio",
		"XRP_S3_SECRET_KEY":      "minio123",
		"XRP_BUCKET":             "lps",
		"XRP_RETENTION":          "0",
		"XRP_RETENTION_INTERVAL": "30m",
		"XRP_LOG_FORMAT":         "json",
		"XRP_LOG_LEVEL":          "DEBUG",
		"XRP_ENV":                "production",
	}))
	assert.NoError(t, err)
}

func TestValidateAllConfiguration_CollectsEveryError(t *testing.T) {
	err := ValidateAllConfiguration(envFrom(map[string]string{
		"XRP_ADDR":               "localhost",
		"XRP_MAX_UPLOAD_BYTES":   "-5",
		"XRP_NAMING":             "random",
		"DATABASE_URL":           "mysql://x",
		"XRP_S3_ENDPOINT":        "minio:9000",
		"XRP_RETENTION":          "forever",
		"XRP_RETENTION_INTERVAL": "0s",
		"XRP_LOG_FORMAT":         "xml",
	}))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "8 error(s)")
	for _, field := range []string{
		"XRP_ADDR", "XRP_MAX_UPLOAD_BYTES", "XRP_NAMING", "DATABASE_URL",
		"XRP_S3_ACCESS_KEY", "XRP_RETENTION:", "XRP_RETENTION_INTERVAL", "XRP_LOG_FORMAT",
	} {
		assert.Contains(t, msg, field)
	}
}

func TestConfigValidator_ValidateAddr(t *testing.T) {
	v := NewConfigValidator()
	v.ValidateAddr("A", ":0")
	v.ValidateAddr("B", "[::1]:8080")
	assert.False(t, v.HasErrors())

	v.ValidateAddr("C", ":70000")
	v.ValidateAddr("D", "host:http")
	assert.Len(t, v.Errors(), 2)
}

func TestConfigValidator_ValidateAllOrNone(t *testing.T) {
	v := NewConfigValidator()
	v.ValidateAllOrNone(envFrom(map[string]string{"A": "1", "B": "2"}), "A", "B")
	v.ValidateAllOrNone(envFrom(nil), "A", "B")
	assert.False(t, v.HasErrors())

	v.ValidateAllOrNone(envFrom(map[string]string{"A": "1"}), "A", "B", "C")
	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "B, C", v.Errors()[0].Field)
}

func TestWarnOnOptionalMissingConfig(t *testing.T) {
	var buf bytes.Buffer
	WarnOnOptionalMissingConfig(NewLogger(&buf, LogLevelInfo, false), envFrom(nil))
	assert.Contains(t, buf.String(), "count=3")

	buf.Reset()
	WarnOnOptionalMissingConfig(NewLogger(&buf, LogLevelInfo, false), envFrom(map[string]string{
		"DATABASE_URL":    "postgres://x",
		"XRP_S3_ENDPOINT": "minio:9000",
		"XRP_ADMIN_ADDR":  ":9090",
	}))
	assert.Empty(t, buf.String())
}
