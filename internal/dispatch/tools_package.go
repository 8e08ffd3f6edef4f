package dispatch

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/packaging"
	"github.com/quiltdata/quilt-mcp-server/internal/permissions"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
)

// registerPackageTools wires the write pipeline (K) and read-side browse
// operations, per spec.md §4.5 and §4.2. package_create_from_s3 and
// package_create are sibling entry points into the same pipeline —
// distinct names so MCP_TOOL_PERMISSIONS can gate them independently, per
// config.defaultToolPermissions's split between the S3-source permission
// set and the catalog-update permission set.
func (r *Registry) registerPackageTools() {
	r.register(&Descriptor{
		Name:        "package_browse",
		Description: "List a package revision's logical-key entries, or list packages under a registry.",
		Handler:     r.handlePackageBrowse,
	})
	r.register(&Descriptor{
		Name:        "package_create_from_s3",
		Description: "Create a new package revision from a list of s3:// source files.",
		Handler:     r.handlePackageCreate,
	})
	r.register(&Descriptor{
		Name:        "package_create",
		Description: "Create a new package revision from a list of s3:// source files.",
		Handler:     r.handlePackageCreate,
	})
	r.register(&Descriptor{
		Name:        "package_update",
		Description: "Append a new revision to an existing package.",
		Handler:     r.handlePackageUpdate,
	})
	r.register(&Descriptor{
		Name:        "package_delete",
		Description: "Delete a package and all of its revisions.",
		Handler:     r.handlePackageDelete,
	})
}

func (r *Registry) pipelineFor(state *reqctx.State) *packaging.Pipeline {
	catalog := r.catalogFor(state)
	s3Client := r.s3For(state)
	discoverer := permissions.NewDiscoverer(s3Client, r.cfg.AllowWritePermProbe)
	return packaging.NewPipeline(catalog, s3Client, discoverer, r.cfg.DefaultRegistry)
}

func (r *Registry) identityFor(ctx context.Context, state *reqctx.State) (string, error) {
	return permissions.Identity(ctx, sts.NewFromConfig(state.Session.Config))
}

func packagingRequest(args map[string]any) packaging.Request {
	return packaging.Request{
		Name:            stringArg(args, "package_name"),
		Files:           stringSliceArg(args, "files"),
		Description:     stringArg(args, "description"),
		Metadata:        args["metadata"],
		Registry:        stringArg(args, "registry"),
		Message:         stringArg(args, "message"),
		Flatten:         boolArg(args, "flatten", false),
		CopyMode:        packaging.CopyMode(stringArg(args, "copy_mode")),
		GenerateReadme:  boolArg(args, "generate_readme", true),
		GenerateSummary: boolArg(args, "generate_summary", true),
		DryRun:          boolArg(args, "dry_run", false),
		ContextHint:     stringArg(args, "context_hint"),
		Template:        stringArg(args, "template"),
	}
}

func (r *Registry) handlePackageCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	identityARN, err := r.identityFor(ctx, state)
	if err != nil {
		return nil, err
	}
	result, preview, err := r.pipelineFor(state).Create(ctx, identityARN, packagingRequest(args))
	if err != nil {
		return nil, err
	}
	return packageOutcome(result, preview), nil
}

func (r *Registry) handlePackageUpdate(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	identityARN, err := r.identityFor(ctx, state)
	if err != nil {
		return nil, err
	}
	result, preview, err := r.pipelineFor(state).Update(ctx, identityARN, packagingRequest(args))
	if err != nil {
		return nil, err
	}
	return packageOutcome(result, preview), nil
}

func packageOutcome(result *packaging.Result, preview *packaging.Preview) map[string]any {
	if preview != nil {
		return map[string]any{
			"dry_run":         true,
			"package_name":    preview.PackageName,
			"registry":        preview.Registry,
			"file_count":      preview.FileCount,
			"logical_keys":    preview.LogicalKeys,
			"metadata":        preview.Metadata,
			"readme_present":  preview.ReadmePresent,
			"summary_preview": preview.SummaryPreview,
		}
	}
	return map[string]any{
		"status":       result.Status,
		"package_name": result.PackageName,
		"top_hash":     result.TopHash,
		"registry":     result.Registry,
		"message":      result.Message,
	}
}

func (r *Registry) handlePackageDelete(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name := stringArg(args, "package_name")
	if name == "" {
		return nil, apperr.Validationf("package_name is required")
	}
	if err := r.catalogFor(state).PackageDelete(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "package_name": name}, nil
}

func (r *Registry) handlePackageBrowse(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	catalog := r.catalogFor(state)

	if name := stringArg(args, "package_name"); name != "" {
		entries, err := catalog.PackageEntries(ctx, name, intArg(args, "limit", 1000))
		if err != nil {
			return nil, err
		}
		return map[string]any{"package_name": name, "entries": entries, "count": len(entries)}, nil
	}

	if bucket := stringArg(args, "bucket"); bucket != "" {
		packages, err := catalog.BucketPackages(ctx, bucket, stringArg(args, "filter"), intArg(args, "page", 1), intArg(args, "per_page", 100))
		if err != nil {
			return nil, err
		}
		return map[string]any{"bucket": bucket, "packages": packages, "count": len(packages)}, nil
	}

	packages, err := catalog.PackagesList(ctx, stringArg(args, "prefix"), intArg(args, "limit", 100))
	if err != nil {
		return nil, err
	}
	return map[string]any{"packages": packages, "count": len(packages)}, nil
}
