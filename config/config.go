// Package config loads the upload client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/kelseyhightower/envconfig"
)

// Backend names.
const (
	BackendHTTP = "http"
	BackendS3   = "s3"
)

// minS3SegmentSize is the smallest multipart part size S3 accepts.
const minS3SegmentSize = 5 * 1024 * 1024

type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	S3        S3Config
	Telemetry TelemetryConfig
	Output    OutputConfig
}

type ServerConfig struct {
	APIBaseURL  string `envconfig:"UPLOAD_API_BASE_URL"`
	AccessToken string `envconfig:"UPLOAD_ACCESS_TOKEN"`
	SinglePath  string `envconfig:"UPLOAD_SINGLE_PATH" default:"/api/upload-single"`
	ChunkPath   string `envconfig:"UPLOAD_CHUNK_PATH" default:"/api/upload-chunk"`
	ListPath    string `envconfig:"UPLOAD_LIST_PATH" default:"/api/files"`
}

type UploadConfig struct {
	Backend           string `envconfig:"UPLOAD_BACKEND" default:"http"`
	SegmentSize       int64  `envconfig:"UPLOAD_SEGMENT_SIZE" default:"5242880"` // 5MiB
	MaxBytesPerSecond int    `envconfig:"UPLOAD_MAX_BYTES_PER_SECOND" default:"0"`
	RestrictTypes     bool   `envconfig:"UPLOAD_RESTRICT_TYPES" default:"false"`
}

type S3Config struct {
	Bucket          string `envconfig:"UPLOAD_S3_BUCKET"`
	Region          string `envconfig:"UPLOAD_S3_REGION"`
	Prefix          string `envconfig:"UPLOAD_S3_PREFIX"`
	AccessKeyID     string `envconfig:"UPLOAD_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"UPLOAD_S3_SECRET_ACCESS_KEY"`
}

type TelemetryConfig struct {
	Endpoint   string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRate float64 `envconfig:"OTEL_TRACE_SAMPLE_RATE" default:"1"`
}

type OutputConfig struct {
	Verbose         bool   `envconfig:"UPLOAD_VERBOSE" default:"false"`
	MetricsTextfile string `envconfig:"UPLOAD_METRICS_TEXTFILE"`
	Analytics       bool   `envconfig:"UPLOAD_ANALYTICS" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that depend on each other.
func (c Config) Validate() error {
	var errs []error

	if c.Upload.SegmentSize <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_SEGMENT_SIZE must be positive, got %d", c.Upload.SegmentSize))
	}
	if c.Upload.MaxBytesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES_PER_SECOND must not be negative, got %d", c.Upload.MaxBytesPerSecond))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACE_SAMPLE_RATE must be within [0,1], got %v", c.Telemetry.SampleRate))
	}

	switch c.Upload.Backend {
	case BackendHTTP:
		if c.Server.APIBaseURL == "" {
			errs = append(errs, errors.New("UPLOAD_API_BASE_URL is required for the http backend"))
		} else if u, err := url.Parse(c.Server.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("UPLOAD_API_BASE_URL is not a valid URL: %s", c.Server.APIBaseURL))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("UPLOAD_S3_BUCKET is required for the s3 backend"))
		}
		if c.S3.Region == "" {
			errs = append(errs, errors.New("UPLOAD_S3_REGION is required for the s3 backend"))
		}
		if c.Upload.SegmentSize > 0 && c.Upload.SegmentSize < minS3SegmentSize {
			errs = append(errs, fmt.Errorf("UPLOAD_SEGMENT_SIZE must be at least %d for the s3 backend, got %d", minS3SegmentSize, c.Upload.SegmentSize))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown UPLOAD_BACKEND: %s", c.Upload.Backend))
	}

	return errors.Join(errs...)
}
