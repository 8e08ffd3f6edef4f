// Package s3ops wraps the AWS SDK S3 operations the rest of the server
// needs, grounded on clanker's internal/aws client's thin per-operation
// method shape but scoped to the spec's object read/list/write surface
// (spec.md §6.1: HeadBucket/ListBuckets/ListObjectsV2/HeadObject/GetObject/PutObject).
package s3ops

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
)

const probeTimeout = 5 * time.Second

// Client wraps *s3.Client with the deadlines and error classification
// spec.md §6.6/§7.5 require.
type Client struct {
	sdk *s3.Client
}

func New(cfg aws.Config) *Client {
	return &Client{sdk: s3.NewFromConfig(cfg)}
}

// ObjectInfo is the normalized result of a HeadObject call.
type ObjectInfo struct {
	Key           string
	Size          int64
	ContentType   string
	ETag          string
	LastModified  time.Time
}

// ListEntry is one item returned by ListObjects.
type ListEntry struct {
	Key          string
	Size         int64
	LastModified time.Time
	IsPrefix     bool
}

func (c *Client) HeadBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.sdk.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucket})
	if err != nil {
		return classifyS3Error("HeadBucket", bucket, err)
	}
	return nil
}

func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := c.sdk.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classifyS3Error("ListBuckets", "", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// ListObjects pages ListObjectsV2 under prefix, stopping once limit entries
// (or all pages) have been collected, per spec.md §5.2's "paginate until
// limit*2 keys are collected" pattern used by callers.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix, delimiter string, limit int) ([]ListEntry, error) {
	var entries []ListEntry
	var continuationToken *string

	for {
		out, err := c.sdk.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            aws.String(prefix),
			Delimiter:         nonEmptyPtr(delimiter),
			MaxKeys:           aws.Int32(1000),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, classifyS3Error("ListObjectsV2", bucket, err)
		}

		for _, p := range out.CommonPrefixes {
			entries = append(entries, ListEntry{Key: aws.ToString(p.Prefix), IsPrefix: true})
		}
		for _, obj := range out.Contents {
			entries = append(entries, ListEntry{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}

		if limit > 0 && len(entries) >= limit {
			return entries[:limit], nil
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return entries, nil
		}
		continuationToken = out.NextContinuationToken
	}
}

func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := c.sdk.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, classifyS3Error("HeadObject", bucket, err)
	}
	return &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// GetObject fetches the full object, or a byte range when rangeHeader is set
// (e.g. "bytes=0-0" for the permission probe's 1-byte read).
func (c *Client) GetObject(ctx context.Context, bucket, key, rangeHeader string) ([]byte, *ObjectInfo, error) {
	input := &s3.GetObjectInput{Bucket: &bucket, Key: &key}
	if rangeHeader != "" {
		input.Range = &rangeHeader
	}
	out, err := c.sdk.GetObject(ctx, input)
	if err != nil {
		return nil, nil, classifyS3Error("GetObject", bucket, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.AWS, "failed to read S3 object body", err)
	}

	return body, &ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (c *Client) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	_, err := c.sdk.PutObject(ctx, input)
	if err != nil {
		return classifyS3Error("PutObject", bucket, err)
	}
	return nil
}

// DeleteObject is used to clean up the permission probe's sentinel write.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.sdk.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return classifyS3Error("DeleteObject", bucket, err)
	}
	return nil
}

func classifyS3Error(op, bucket string, err error) error {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	var noSuchKey *types.NoSuchKey
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchBucket):
		return apperr.New(apperr.NotFound, "bucket not found: "+bucket).With("operation", op)
	case errors.As(err, &noSuchKey):
		return apperr.New(apperr.NotFound, "object not found").With("operation", op)
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 403:
			return apperr.Wrap(apperr.Authorization, "access denied for "+op+" on "+bucket, err)
		case 404:
			return apperr.Wrap(apperr.NotFound, op+" target not found: "+bucket, err)
		}
	}

	return apperr.Wrap(apperr.AWS, op+" failed for "+bucket, err)
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
