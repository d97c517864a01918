package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("UPLOAD_API_BASE_URL", "http://localhost:8080")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendHTTP, cfg.Upload.Backend)
	assert.Equal(t, int64(5242880), cfg.Upload.SegmentSize)
	assert.Equal(t, 0, cfg.Upload.MaxBytesPerSecond)
	assert.False(t, cfg.Upload.RestrictTypes)
	assert.Equal(t, "/api/upload-single", cfg.Server.SinglePath)
	assert.Equal(t, "/api/upload-chunk", cfg.Server.ChunkPath)
	assert.Equal(t, "/api/files", cfg.Server.ListPath)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.False(t, cfg.Output.Verbose)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("UPLOAD_BACKEND", "s3")
	t.Setenv("UPLOAD_S3_BUCKET", "uploads")
	t.Setenv("UPLOAD_S3_REGION", "eu-west-1")
	t.Setenv("UPLOAD_SEGMENT_SIZE", "10485760")
	t.Setenv("UPLOAD_VERBOSE", "true")
	t.Setenv("UPLOAD_RESTRICT_TYPES", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendS3, cfg.Upload.Backend)
	assert.Equal(t, "uploads", cfg.S3.Bucket)
	assert.Equal(t, int64(10485760), cfg.Upload.SegmentSize)
	assert.True(t, cfg.Output.Verbose)
	assert.True(t, cfg.Upload.RestrictTypes)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("UPLOAD_API_BASE_URL", "http://localhost:8080")
	t.Setenv("UPLOAD_SEGMENT_SIZE", "five")

	_, err := Load()

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{APIBaseURL: "http://localhost:8080"},
			Upload:    UploadConfig{Backend: BackendHTTP, SegmentSize: 5242880},
			Telemetry: TelemetryConfig{SampleRate: 1},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid http", modify: func(*Config) {}},
		{name: "missing base URL", modify: func(c *Config) { c.Server.APIBaseURL = "" }, wantErr: "UPLOAD_API_BASE_URL is required"},
		{name: "invalid base URL", modify: func(c *Config) { c.Server.APIBaseURL = "localhost" }, wantErr: "not a valid URL"},
		{name: "zero segment size", modify: func(c *Config) { c.Upload.SegmentSize = 0 }, wantErr: "UPLOAD_SEGMENT_SIZE must be positive"},
		{name: "negative pacing", modify: func(c *Config) { c.Upload.MaxBytesPerSecond = -1 }, wantErr: "UPLOAD_MAX_BYTES_PER_SECOND"},
		{name: "sample rate out of range", modify: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: "OTEL_TRACE_SAMPLE_RATE"},
		{name: "unknown backend", modify: func(c *Config) { c.Upload.Backend = "ftp" }, wantErr: "unknown UPLOAD_BACKEND: ftp"},
		{
			name: "valid s3",
			modify: func(c *Config) {
				c.Upload.Backend = BackendS3
				c.S3 = S3Config{Bucket: "b", Region: "us-east-1"}
			},
		},
		{
			name: "s3 segment too small",
			modify: func(c *Config) {
				c.Upload.Backend = BackendS3
				c.Upload.SegmentSize = 1024
				c.S3 = S3Config{Bucket: "b", Region: "us-east-1"}
			},
			wantErr: "must be at least 5242880 for the s3 backend",
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *Config) { c.Upload.Backend = BackendS3; c.S3.Region = "us-east-1" },
			wantErr: "UPLOAD_S3_BUCKET is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
