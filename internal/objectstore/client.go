// Package objectstore talks to an S3-compatible bucket (Cloudflare R2 in
// production). It offers plain and conditional writes, used for database
// snapshots and the leader lock.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("objectstore: object not found")

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds the bucket credentials.
type Config struct {
	Endpoint    string // e.g. https://<account>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Client reads and writes objects in one bucket.
type Client struct {
	api    API
	bucket string
}

// New creates a Client for an R2 bucket.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("objectstore: endpoint, credentials and bucket are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // R2 has no virtual-host buckets
	})
	return NewWithAPI(api, cfg.BucketName), nil
}

// NewWithAPI wraps an existing S3 API.
func NewWithAPI(api API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// Put writes an object and returns its ETag.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	out, err := c.api.PutObject(ctx, c.putInput(key, body, contentType))
	if err != nil {
		return "", fmt.Errorf("objectstore: put %q: %w", key, err)
	}
	return trimETag(out.ETag), nil
}

// Get opens an object. The caller closes the body.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("objectstore: get %q: %w", key, err)
	}
	return out.Body, trimETag(out.ETag), nil
}

// Head returns the ETag of an object.
func (c *Client) Head(ctx context.Context, key string) (string, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("objectstore: head %q: %w", key, err)
	}
	return trimETag(out.ETag), nil
}

// PutIfAbsent creates an object only if the key is free (If-None-Match: *).
// It reports false when the object already exists.
func (c *Client) PutIfAbsent(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	in := c.putInput(key, body, contentType)
	in.IfNoneMatch = aws.String("*")
	return c.conditionalPut(ctx, key, in)
}

// PutIfMatch replaces an object only while its ETag is etag. It reports false
// when the object changed.
func (c *Client) PutIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error) {
	in := c.putInput(key, body, contentType)
	in.IfMatch = aws.String(`"` + etag + `"`)
	return c.conditionalPut(ctx, key, in)
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("objectstore: delete %q: %w", key, err)
	}
	return nil
}

func (c *Client) putInput(key string, body io.Reader, contentType string) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	return in
}

func (c *Client) conditionalPut(ctx context.Context, key string, in *s3.PutObjectInput) (bool, string, error) {
	out, err := c.api.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailed(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("objectstore: conditional put %q: %w", key, err)
	}
	return true, trimETag(out.ETag), nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
