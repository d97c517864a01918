package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	fileField         = "file"
	chunkIndexField   = "currentChunkIndex"
	totalChunksField  = "totalChunks"
	defaultPartMIME   = "application/octet-stream"
	maxListBodyLength = 16 * 1024 * 1024
)

type endpoints struct {
	single string
	chunk  string
	list   string
}

type listResponse struct {
	Files []RemoteFile `json:"files"`
}

type formField struct {
	name  string
	value string
}

type apiClient struct {
	uploadClient *retryablehttp.Client
	queryClient  *retryablehttp.Client
	endpoints    endpoints
	accessToken  string
	pacer        *Pacer
	logger       log.Logger
}

func newAPIClient(uploadClient, queryClient *retryablehttp.Client, endpoints endpoints, accessToken string, pacer *Pacer, logger log.Logger) apiClient {
	return apiClient{
		uploadClient: uploadClient,
		queryClient:  queryClient,
		endpoints:    endpoints,
		accessToken:  accessToken,
		pacer:        pacer,
		logger:       logger,
	}
}

func (c apiClient) uploadWhole(ctx context.Context, part Part) error {
	c.logger.Debugf("Uploading %s (non multipart upload)", part.FileName)
	return c.postMultipart(ctx, c.endpoints.single, part)
}

func (c apiClient) uploadSegment(ctx context.Context, part Part, index, total int) error {
	c.logger.Debugf("Uploading chunk %d of %s to %s", index, part.FileName, c.endpoints.chunk)
	return c.postMultipart(ctx, c.endpoints.chunk, part,
		formField{name: chunkIndexField, value: strconv.Itoa(index)},
		formField{name: totalChunksField, value: strconv.Itoa(total)},
	)
}

func (c apiClient) postMultipart(ctx context.Context, url string, part Part, fields ...formField) error {
	body, contentType, err := newMultipartBody(part, fields)
	if err != nil {
		return fmt.Errorf("build multipart body: %w", err)
	}

	if err := c.pacer.Wait(ctx, len(body)); err != nil {
		return &NetworkError{Op: "POST", URL: url, Err: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	req.ContentLength = int64(len(body))

	dump, err := httputil.DumpRequest(req.Request, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Upload request dump: %s", string(dump))

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "POST", URL: url, Err: err}
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unwrapError(resp, uploadErrorText)
	}

	// Drain so the connection can be reused for the next segment.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Debugf("Failed to drain response body: %s", err)
	}

	return nil
}

func (c apiClient) listFiles(ctx context.Context) ([]RemoteFile, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.list, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.queryClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "GET", URL: c.endpoints.list, Err: err}
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, unwrapError(resp, listErrorText)
	}

	var response listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListBodyLength)).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	if response.Files == nil {
		return []RemoteFile{}, nil
	}

	return response.Files, nil
}

func (c apiClient) authorize(req *retryablehttp.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
}

func (c apiClient) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warnf("Failed to close response body: %s", err)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// newMultipartBody writes the file part first and the extra fields after it.
func newMultipartBody(part Part, fields []formField) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	contentType := part.ContentType
	if contentType == "" {
		contentType = defaultPartMIME
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fileField, quoteEscaper.Replace(part.FileName)))
	header.Set("Content-Type", contentType)

	fileWriter, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if part.Body != nil {
		if _, err := io.Copy(fileWriter, part.Body); err != nil {
			return nil, "", fmt.Errorf("read file part: %w", err)
		}
	}

	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
