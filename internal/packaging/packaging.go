// Package packaging implements the write pipeline of spec.md §4.5: validate
// the request, resolve a target registry via permission discovery,
// organize logical keys, extract README-in-metadata into a README file,
// optionally add a quilt_summarize summary to the package metadata, and
// submit the revision
// through the catalog's REST endpoint. Grounded on original_source's
// tools/packaging.py / tools/s3_package.py / tools/quilt_summary.py, with
// S3 URI parsing styled on clanker's internal/aws S3-URI helpers.
package packaging

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
	"github.com/quiltdata/quilt-mcp-server/internal/permissions"
)

type CopyMode string

const (
	CopyAll        CopyMode = "all"
	CopyNone       CopyMode = "none"
	CopySameBucket CopyMode = "same_bucket"
)

var packageNameRe = regexp.MustCompile(`^[a-z0-9_-]+/[a-z0-9_-]+$`)

// Request is the inbound package-create/update request of spec.md §3.1.
type Request struct {
	Name            string
	Files           []string
	Description     string
	Metadata        any // map[string]any or a JSON string, per spec.md §9 "parse-if-string"
	Registry        string
	Message         string
	Flatten         bool
	CopyMode        CopyMode
	GenerateReadme  bool
	GenerateSummary bool
	DryRun          bool
	ContextHint     string // department/project hint for registry recommendation scoring
	Template        string // metadata_templates name, per spec.md §4.5 step 2
}

// Result is the success outcome of a non-dry-run submission.
type Result struct {
	Status      string
	PackageName string
	TopHash     string
	Registry    string
	Message     string
}

// Preview is the dry-run outcome of spec.md §4.5 "Dry-run mode".
type Preview struct {
	PackageName    string
	Registry       string
	FileCount      int
	LogicalKeys    map[string]string // physical s3 URI -> logical key
	Metadata       map[string]any
	ReadmePresent  bool
	SummaryPreview map[string]any
}

// s3Writer is the narrow slice of s3ops.Client the pipeline needs to write
// the generated README.md directly in the registry bucket; satisfied by
// *s3ops.Client.
type s3Writer interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Pipeline wires the write pipeline's dependencies: the catalog client for
// submission (E), the S3 client for materializing generated artifacts (G),
// and the discoverer for registry resolution (F).
type Pipeline struct {
	catalog         *catalogclient.Client
	s3              s3Writer
	discoverer      *permissions.Discoverer
	defaultRegistry string
}

func NewPipeline(catalog *catalogclient.Client, s3 s3Writer, discoverer *permissions.Discoverer, defaultRegistry string) *Pipeline {
	return &Pipeline{catalog: catalog, s3: s3, discoverer: discoverer, defaultRegistry: defaultRegistry}
}

// s3URI is one parsed `s3://bucket/key` file reference.
type s3URI struct {
	Bucket string
	Key    string
	Raw    string
}

func parseS3URI(raw string) (s3URI, error) {
	if !strings.HasPrefix(raw, "s3://") {
		return s3URI{}, apperr.Validationf("file %q is not a valid s3://bucket/key URI", raw)
	}
	rest := strings.TrimPrefix(raw, "s3://")
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return s3URI{}, apperr.Validationf("file %q must include both a bucket and a non-empty key", raw)
	}
	return s3URI{Bucket: rest[:idx], Key: rest[idx+1:], Raw: raw}, nil
}

// Create runs the full write pipeline for a new package, per spec.md §4.5.
// identityARN anchors the caller for permission discovery (F).
func (p *Pipeline) Create(ctx context.Context, identityARN string, req Request) (*Result, *Preview, error) {
	return p.run(ctx, identityARN, req, false)
}

// Update is identical to Create except it submits via PackageUpdate instead
// of PackageCreate; spec.md §4.2 treats them as sibling REST operations.
func (p *Pipeline) Update(ctx context.Context, identityARN string, req Request) (*Result, *Preview, error) {
	return p.run(ctx, identityARN, req, true)
}

func (p *Pipeline) run(ctx context.Context, identityARN string, req Request, isUpdate bool) (*Result, *Preview, error) {
	// Step 1: validate.
	if !packageNameRe.MatchString(req.Name) {
		return nil, nil, apperr.Validationf(`package name %q must match "namespace/name" using lowercase letters, digits, underscore and hyphen`, req.Name)
	}
	if len(req.Files) == 0 {
		return nil, nil, apperr.Validationf("files must be a non-empty list of s3://bucket/key URIs")
	}
	switch req.CopyMode {
	case "", CopyAll, CopyNone, CopySameBucket:
	default:
		return nil, nil, apperr.Validationf("copy_mode must be one of all, none, same_bucket; got %q", req.CopyMode)
	}
	copyMode := req.CopyMode
	if copyMode == "" {
		copyMode = CopyAll
	}

	uris := make([]s3URI, 0, len(req.Files))
	for _, f := range req.Files {
		u, err := parseS3URI(f)
		if err != nil {
			// Open Question resolution (spec.md §9, DESIGN.md): a physical
			// key that cannot be parsed as s3://bucket/key is rejected here
			// rather than silently excluded under copy_mode=same_bucket.
			return nil, nil, err
		}
		uris = append(uris, u)
	}

	// Step 2: metadata preparation.
	metadata, readmeContent, err := prepareMetadata(req.Metadata)
	if err != nil {
		return nil, nil, err
	}
	if req.Template != "" {
		metadata = applyTemplate(req.Template, metadata)
	}
	if req.Description != "" {
		metadata["description"] = req.Description
	}

	// Step 3: registry resolution.
	registryBucket, err := p.resolveRegistry(ctx, identityARN, req, uris[0].Bucket)
	if err != nil {
		return nil, nil, err
	}

	// Step 4: write-permission check.
	if err := p.checkWritable(ctx, identityARN, registryBucket, uris[0].Bucket, req.ContextHint); err != nil {
		return nil, nil, err
	}

	// Step 5: logical-key organization.
	logicalKeys := organizeLogicalKeys(uris, req.Flatten)

	// Step 7: README materialization.
	readmePresent := readmeContent != ""
	if !readmePresent && req.GenerateReadme {
		readmeContent = generateReadme(req.Name, uris, logicalKeys, registryBucket)
		readmePresent = true
	}
	if readmePresent {
		logicalKeys["__readme__"] = "README.md"
	}

	if req.DryRun {
		preview := &Preview{
			PackageName:   req.Name,
			Registry:      "s3://" + registryBucket,
			FileCount:     len(uris),
			LogicalKeys:   withoutSentinel(logicalKeys),
			Metadata:      metadata,
			ReadmePresent: readmePresent,
		}
		if req.GenerateSummary {
			preview.SummaryPreview = buildSummary(uris, logicalKeys, req.Name, registryBucket)
		}
		return nil, preview, nil
	}

	// Step 7 continued: materialize the README as an actual object in the
	// registry bucket so the submitted revision's s3 URI list — and thus the
	// resulting package entry set — includes it, per the spec.md §8.1
	// invariant that a readme_content/readme write always yields a
	// top-level README.md package entry.
	var readmeURI string
	if readmePresent {
		if p.s3 == nil {
			return nil, nil, apperr.New(apperr.Internal, "packaging pipeline has no S3 client configured; cannot materialize README.md")
		}
		readmeURI = fmt.Sprintf("s3://%s/README.md", registryBucket)
		if err := p.s3.PutObject(ctx, registryBucket, "README.md", []byte(readmeContent), "text/markdown"); err != nil {
			return nil, nil, err
		}
	}

	// Step 8: optional summary generation. The summary is stored in the
	// package metadata under "quilt_summarize"; no separate
	// quilt_summarize.json object is written to the registry.
	if req.GenerateSummary {
		metadata["quilt_summarize"] = buildSummary(uris, logicalKeys, req.Name, registryBucket)
	}

	// Step 9: revision submission.
	s3URIs := make([]string, 0, len(uris)+1)
	for _, u := range uris {
		s3URIs = append(s3URIs, u.Raw)
	}
	if readmeURI != "" {
		s3URIs = append(s3URIs, readmeURI)
	}

	submitReq := catalogclient.PackageRevisionRequest{
		Package:  req.Name,
		S3URIs:   s3URIs,
		Metadata: metadata,
		Message:  req.Message,
		Flatten:  req.Flatten,
		CopyMode: string(copyMode),
	}

	var resp *catalogclient.PackageRevisionResponse
	if isUpdate {
		resp, err = p.catalog.PackageUpdate(ctx, submitReq)
	} else {
		resp, err = p.catalog.PackageCreate(ctx, submitReq)
	}
	if err != nil {
		return nil, nil, err
	}

	return &Result{
		Status:      "success",
		PackageName: req.Name,
		TopHash:     resp.TopHash,
		Registry:    "s3://" + registryBucket,
		Message:     req.Message,
	}, nil, nil
}

// prepareMetadata implements spec.md §4.5 step 2: parse metadata-as-string,
// extract readme_content/readme (first present wins) and strip them from
// the stored metadata, per the invariant of spec.md §8.1 that persisted
// metadata never carries either key.
func prepareMetadata(raw any) (map[string]any, string, error) {
	var metadata map[string]any

	switch v := raw.(type) {
	case nil:
		metadata = map[string]any{}
	case map[string]any:
		metadata = cloneMap(v)
	case string:
		if v == "" {
			metadata = map[string]any{}
			break
		}
		if err := json.Unmarshal([]byte(v), &metadata); err != nil {
			return nil, "", apperr.Wrap(apperr.Validation, `metadata string is not valid JSON; expected e.g. {"description": "...", "readme_content": "# Title"}`, err)
		}
	default:
		return nil, "", apperr.Validationf("metadata must be a JSON object or a JSON-encoded string")
	}

	readme := ""
	if v, ok := metadata["readme_content"].(string); ok {
		readme = v
	} else if v, ok := metadata["readme"].(string); ok {
		readme = v
	}
	delete(metadata, "readme_content")
	delete(metadata, "readme")

	return metadata, readme, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// resolveRegistry implements spec.md §4.5 step 3.
func (p *Pipeline) resolveRegistry(ctx context.Context, identityARN string, req Request, sourceBucket string) (string, error) {
	if req.Registry != "" {
		return normalizeBucket(req.Registry), nil
	}

	if p.discoverer != nil {
		buckets := []string{sourceBucket}
		infos := p.discoverer.Discover(ctx, identityARN, buckets)
		recs := permissions.Recommend(infos, sourceBucket, req.ContextHint)
		for _, rec := range recs {
			info := infos[rec.Bucket]
			if info.Level == permissions.FullAccess || info.Level == permissions.ReadWrite {
				return rec.Bucket, nil
			}
		}
	}

	if p.defaultRegistry != "" {
		return normalizeBucket(p.defaultRegistry), nil
	}

	return "", apperr.New(apperr.Validation, "no registry supplied and none could be auto-resolved; set DEFAULT_REGISTRY or pass registry explicitly")
}

func normalizeBucket(registry string) string {
	bucket := strings.TrimPrefix(registry, "s3://")
	if idx := strings.Index(bucket, "/"); idx >= 0 {
		bucket = bucket[:idx]
	}
	return bucket
}

// checkWritable implements spec.md §4.5 step 4.
func (p *Pipeline) checkWritable(ctx context.Context, identityARN, registryBucket, sourceBucket, contextHint string) error {
	if p.discoverer == nil {
		return nil
	}
	infos := p.discoverer.Discover(ctx, identityARN, []string{registryBucket})
	info, ok := infos[registryBucket]
	if !ok || (info.Level != permissions.FullAccess && info.Level != permissions.ReadWrite) {
		recs := permissions.Recommend(infos, sourceBucket, contextHint)
		alternatives := make([]string, 0, len(recs))
		for _, r := range recs {
			alternatives = append(alternatives, r.Bucket)
		}
		return apperr.New(apperr.Authorization, "registry bucket is not writable by the current identity").
			With("bucket", registryBucket).With("recommended_alternatives", alternatives)
	}
	return nil
}
