package dispatch

import (
	"context"
	"encoding/base64"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
)

// registerBucketTools wires the S3 object surface of spec.md §6.3, grouped
// under the bucket_* tool names config.defaultToolPermissions already
// names.
func (r *Registry) registerBucketTools() {
	r.register(&Descriptor{
		Name:        "bucket_object_info",
		Description: "Return S3 HeadObject metadata (size, content type, ETag) for one object.",
		Handler:     r.handleBucketObjectInfo,
	})
	r.register(&Descriptor{
		Name:        "bucket_object_text",
		Description: "Fetch an S3 object and return its contents decoded as UTF-8 text.",
		Handler:     r.handleBucketObjectText,
	})
	r.register(&Descriptor{
		Name:        "bucket_object_fetch",
		Description: "Fetch an S3 object and return its contents base64-encoded, with an optional byte range.",
		Handler:     r.handleBucketObjectFetch,
	})
	r.register(&Descriptor{
		Name:        "bucket_objects_list",
		Description: "List objects under a bucket/prefix.",
		Handler:     r.handleBucketObjectsList,
	})
	r.register(&Descriptor{
		Name:        "bucket_objects_put",
		Description: "Write an object to S3. Content may be UTF-8 text or base64-encoded bytes.",
		Handler:     r.handleBucketObjectsPut,
	})
}

func (r *Registry) handleBucketObjectInfo(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key := stringArg(args, "bucket"), stringArg(args, "key")
	if bucket == "" || key == "" {
		return nil, apperr.Validationf("bucket and key are required")
	}
	info, err := r.s3For(state).HeadObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":        bucket,
		"key":           key,
		"size":          info.Size,
		"content_type":  info.ContentType,
		"etag":          info.ETag,
		"last_modified": info.LastModified,
	}, nil
}

func (r *Registry) handleBucketObjectText(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key := stringArg(args, "bucket"), stringArg(args, "key")
	if bucket == "" || key == "" {
		return nil, apperr.Validationf("bucket and key are required")
	}
	body, info, err := r.s3For(state).GetObject(ctx, bucket, key, stringArg(args, "range"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":  bucket,
		"key":     key,
		"text":    string(body),
		"size":    info.Size,
		"content_type": info.ContentType,
	}, nil
}

func (r *Registry) handleBucketObjectFetch(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key := stringArg(args, "bucket"), stringArg(args, "key")
	if bucket == "" || key == "" {
		return nil, apperr.Validationf("bucket and key are required")
	}
	body, info, err := r.s3For(state).GetObject(ctx, bucket, key, stringArg(args, "range"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket":        bucket,
		"key":           key,
		"content_base64": base64.StdEncoding.EncodeToString(body),
		"size":          info.Size,
		"content_type":  info.ContentType,
	}, nil
}

func (r *Registry) handleBucketObjectsList(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket := stringArg(args, "bucket")
	if bucket == "" {
		return nil, apperr.Validationf("bucket is required")
	}
	limit := intArg(args, "limit", 1000)
	entries, err := r.s3For(state).ListObjects(ctx, bucket, stringArg(args, "prefix"), stringArg(args, "delimiter"), limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bucket": bucket, "entries": entries, "count": len(entries)}, nil
}

func (r *Registry) handleBucketObjectsPut(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, key := stringArg(args, "bucket"), stringArg(args, "key")
	if bucket == "" || key == "" {
		return nil, apperr.Validationf("bucket and key are required")
	}

	var body []byte
	if encoded := stringArg(args, "content_base64"); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, "content_base64 is not valid base64", err)
		}
		body = decoded
	} else {
		body = []byte(stringArg(args, "text"))
	}

	if err := r.s3For(state).PutObject(ctx, bucket, key, body, stringArg(args, "content_type")); err != nil {
		return nil, err
	}
	return map[string]any{"bucket": bucket, "key": key, "bytes_written": len(body)}, nil
}
