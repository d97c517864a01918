package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Default endpoint paths of the receiving server.
const (
	DefaultSinglePath = "/api/upload-single"
	DefaultChunkPath  = "/api/upload-chunk"
	DefaultListPath   = "/api/files"
)

// ClientParams ...
type ClientParams struct {
	APIBaseURL string
	Token      string
	SinglePath string
	ChunkPath  string
	ListPath   string
	// BytesPerSecond paces request bodies; 0 disables pacing.
	BytesPerSecond int
}

// Client is the HTTP Transport and Lister of the receiving server.
type Client struct {
	api apiClient
}

var _ Transport = (*Client)(nil)
var _ Lister = (*Client)(nil)

// NewClient creates a client for the given server.
func NewClient(params ClientParams, logger log.Logger) (*Client, error) {
	if params.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	if _, err := url.ParseRequestURI(params.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	endpoints := endpoints{
		single: joinURL(params.APIBaseURL, params.SinglePath, DefaultSinglePath),
		chunk:  joinURL(params.APIBaseURL, params.ChunkPath, DefaultChunkPath),
		list:   joinURL(params.APIBaseURL, params.ListPath, DefaultListPath),
	}

	return &Client{
		api: newAPIClient(
			NewUploadHTTPClient(logger),
			NewQueryHTTPClient(logger),
			endpoints,
			params.Token,
			NewPacer(params.BytesPerSecond),
			logger,
		),
	}, nil
}

// UploadWhole sends the whole file to the single-file endpoint.
func (c *Client) UploadWhole(ctx context.Context, part Part) error {
	return c.api.uploadWhole(ctx, part)
}

// UploadSegment sends one segment to the chunk endpoint.
func (c *Client) UploadSegment(ctx context.Context, part Part, index, total int) error {
	return c.api.uploadSegment(ctx, part, index, total)
}

// ListFiles returns the files stored on the server.
func (c *Client) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	return c.api.listFiles(ctx)
}

// NewUploadHTTPClient returns a client that sends every upload request exactly once and
// hands back failed responses untouched, so the error body can be read.
func NewUploadHTTPClient(logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	instrument(client)
	return client
}

// NewQueryHTTPClient returns a client for idempotent reads; it keeps the default retry policy.
func NewQueryHTTPClient(logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.CheckRetry = createCustomRetryFunction(logger)
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	instrument(client)
	return client
}

func instrument(client *retryablehttp.Client) {
	if client.HTTPClient == nil {
		client.HTTPClient = &http.Client{}
	}
	client.HTTPClient.Transport = otelhttp.NewTransport(client.HTTPClient.Transport)
}

func createCustomRetryFunction(logger log.Logger) func(context.Context, *http.Response, error) (bool, error) {
	return func(ctx context.Context, resp *http.Response, reqErr error) (bool, error) {
		retry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, reqErr)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; reqErr=%+v", retry, err, reqErr)
		return retry, err
	}
}

func joinURL(baseURL, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
