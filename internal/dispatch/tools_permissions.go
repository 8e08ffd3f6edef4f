package dispatch

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/permissions"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
)

func (r *Registry) registerPermissionTools() {
	r.register(&Descriptor{
		Name:        "permissions_discover",
		Description: "Probe a set of buckets for the caller's effective access level and recommend write targets.",
		Handler:     r.handlePermissionsDiscover,
	})
}

func (r *Registry) handlePermissionsDiscover(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	buckets := stringSliceArg(args, "buckets")
	if len(buckets) == 0 {
		if single := stringArg(args, "bucket"); single != "" {
			buckets = []string{single}
		}
	}

	identityARN, err := r.identityFor(ctx, state)
	if err != nil {
		return nil, err
	}

	if len(buckets) == 0 {
		buckets, err = r.enumerateBuckets(ctx, state)
		if err != nil {
			return nil, err
		}
	}

	discoverer := permissions.NewDiscoverer(r.s3For(state), r.cfg.AllowWritePermProbe)
	infos := discoverer.Discover(ctx, identityARN, buckets)

	recommendations := permissions.Recommend(infos, stringArg(args, "source_bucket"), stringArg(args, "context_hint"))

	return map[string]any{
		"identity":        identityARN,
		"buckets":         infos,
		"recommendations": recommendations,
	}, nil
}

// enumerateBuckets implements spec.md §4.3 step 2's candidate-bucket
// auto-enumeration when the caller supplies neither `buckets` nor `bucket`:
// prefer the catalog's bucketConfigs query (reflects the stack's configured
// buckets), falling back to the S3 ListBuckets API.
func (r *Registry) enumerateBuckets(ctx context.Context, state *reqctx.State) ([]string, error) {
	if configs, err := r.catalogFor(state).BucketConfigs(ctx); err == nil && len(configs) > 0 {
		names := make([]string, 0, len(configs))
		for _, c := range configs {
			names = append(names, c.Name)
		}
		return names, nil
	}

	names, err := r.s3For(state).ListBuckets(ctx)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "buckets (or bucket) is required and automatic enumeration failed").With("cause", err.Error())
	}
	if len(names) == 0 {
		return nil, apperr.Validationf("buckets (or bucket) is required; no buckets could be auto-enumerated")
	}
	return names, nil
}
