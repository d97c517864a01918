package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/v2/log"
)

// MinS3SegmentSize is the smallest part size S3 accepts for all but the last part.
const MinS3SegmentSize int64 = 5 * 1024 * 1024

// S3Params ...
type S3Params struct {
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3API is the subset of the S3 client used by S3Transport.
type S3API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
}

type pendingMultipartUpload struct {
	key      string
	uploadID string
	parts    []types.CompletedPart
}

// S3Transport stores files in an S3 bucket. Whole files are put with the upload manager;
// segments map onto one multipart upload, segment i being part i+1.
type S3Transport struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   log.Logger
	pending  *pendingMultipartUpload
}

var _ Transport = (*S3Transport)(nil)
var _ Lister = (*S3Transport)(nil)

// NewS3Transport loads AWS credentials and creates an S3 backed Transport.
func NewS3Transport(ctx context.Context, params S3Params, logger log.Logger) (*S3Transport, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("bucket must not be empty")
	}

	cfg, err := loadAWSCredentials(ctx, params.Region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	return NewS3TransportWithClient(s3.NewFromConfig(*cfg), params.Bucket, params.Prefix, logger), nil
}

// NewS3TransportWithClient creates an S3Transport over an existing client.
func NewS3TransportWithClient(client S3API, bucket, prefix string, logger log.Logger) *S3Transport {
	return &S3Transport{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// UploadWhole puts the file as a single object.
func (t *S3Transport) UploadWhole(ctx context.Context, part Part) error {
	key := t.objectKey(part.FileName)
	t.logger.Debugf("Uploading %s to s3://%s/%s", part.FileName, t.bucket, key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
		Body:   part.Body,
	}
	if part.ContentType != "" {
		input.ContentType = aws.String(part.ContentType)
	}

	if _, err := t.uploader.Upload(ctx, input); err != nil {
		return wrapS3Error("upload object", err)
	}
	return nil
}

// UploadSegment uploads one part. Index 0 starts the multipart upload, the last index
// completes it. A failed part or a failed completion aborts the whole multipart upload.
func (t *S3Transport) UploadSegment(ctx context.Context, part Part, index, total int) error {
	key := t.objectKey(part.FileName)

	if index == 0 {
		if err := t.startMultipartUpload(ctx, key, part.ContentType); err != nil {
			return err
		}
	}
	if t.pending == nil || t.pending.key != key {
		return fmt.Errorf("no multipart upload in progress for %s", key)
	}

	body, err := seekableBody(part.Body)
	if err != nil {
		t.abort(ctx)
		return fmt.Errorf("read part %d: %w", index+1, err)
	}

	partNumber := aws.Int32(int32(index + 1))
	resp, err := t.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(t.pending.uploadID),
		PartNumber:    partNumber,
		Body:          body,
		ContentLength: aws.Int64(part.Size),
	})
	if err != nil {
		t.abort(ctx)
		return wrapS3Error(fmt.Sprintf("upload part %d", index+1), err)
	}
	t.pending.parts = append(t.pending.parts, types.CompletedPart{
		ETag:       resp.ETag,
		PartNumber: partNumber,
	})

	if index < total-1 {
		return nil
	}

	pending := t.pending
	_, err = t.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(t.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(pending.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: pending.parts},
	})
	if err != nil {
		// The parts stay billed in the bucket until the upload is aborted.
		t.abort(ctx)
		return wrapS3Error("complete multipart upload", err)
	}
	t.pending = nil
	t.logger.Debugf("Multipart upload of %s completed with %d parts", key, len(pending.parts))

	return nil
}

// ListFiles lists the objects under the configured prefix.
func (t *S3Transport) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
	}
	if t.prefix != "" {
		input.Prefix = aws.String(t.prefix + "/")
	}

	files := []RemoteFile{}
	paginator := s3.NewListObjectsV2Paginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Error("list objects", err)
		}
		for _, object := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(object.Key), aws.ToString(input.Prefix))
			files = append(files, RemoteFile{Name: name, Size: aws.ToInt64(object.Size)})
		}
	}

	return files, nil
}

func (t *S3Transport) startMultipartUpload(ctx context.Context, key, contentType string) error {
	if t.pending != nil {
		t.logger.Warnf("Aborting unfinished multipart upload of %s", t.pending.key)
		t.abort(ctx)
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	resp, err := t.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return wrapS3Error("create multipart upload", err)
	}

	t.pending = &pendingMultipartUpload{
		key:      key,
		uploadID: aws.ToString(resp.UploadId),
	}
	t.logger.Debugf("Multipart upload ID: %s", t.pending.uploadID)

	return nil
}

func (t *S3Transport) abort(ctx context.Context) {
	if t.pending == nil {
		return
	}
	pending := t.pending
	t.pending = nil

	_, err := t.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(t.bucket),
		Key:      aws.String(pending.key),
		UploadId: aws.String(pending.uploadID),
	})
	if err != nil {
		t.logger.Warnf("Failed to abort multipart upload %s: %s", pending.uploadID, err)
	}
}

func (t *S3Transport) objectKey(fileName string) string {
	if t.prefix == "" {
		return fileName
	}
	return path.Join(t.prefix, fileName)
}

// seekableBody keeps seekable readers as they are, anything else is read into memory,
// since request signing needs to rewind the body.
func seekableBody(body io.Reader) (io.ReadSeeker, error) {
	if body == nil {
		return bytes.NewReader(nil), nil
	}
	if seeker, ok := body.(io.ReadSeeker); ok {
		return seeker, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func wrapS3Error(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		serverErr := &ServerError{
			Message: apiErr.ErrorMessage(),
			Body:    apiErr.ErrorCode(),
		}
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			serverErr.StatusCode = respErr.HTTPStatusCode()
		}
		return fmt.Errorf("%s: %w", op, serverErr)
	}
	return &NetworkError{Op: op, Err: err}
}

func loadAWSCredentials(
	ctx context.Context,
	region string,
	accessKeyID string,
	secretKey string,
	logger log.Logger,
) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
