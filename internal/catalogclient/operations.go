package catalogclient

import (
	"context"
	"encoding/json"
)

// BucketConfig is one entry of the bucketConfigs GraphQL query, used by
// permission discovery (spec.md §4.3 step 2).
type BucketConfig struct {
	Name string `json:"name"`
}

func (c *Client) BucketConfigs(ctx context.Context) ([]BucketConfig, error) {
	const query = `query { bucketConfigs { name } }`
	var data struct {
		BucketConfigs []BucketConfig `json:"bucketConfigs"`
	}
	if err := c.Query(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.BucketConfigs, nil
}

// PackageSummary is one row of packages_list/search_packages results.
type PackageSummary struct {
	Bucket  string `json:"bucket"`
	Name    string `json:"name"`
	Hash    string `json:"hash"`
	Pointer string `json:"pointer"`
	Modified string `json:"modified"`
	Comment string `json:"comment"`
	Workflow string `json:"workflow"`
	TotalEntriesCount int `json:"totalEntriesCount"`
	Size    int64  `json:"size"`
}

func (c *Client) PackagesList(ctx context.Context, prefix string, limit int) ([]PackageSummary, error) {
	const query = `query($prefix: String, $limit: Int) {
		packages(filter: {name: {startsWith: $prefix}}, first: $limit) {
			nodes { bucket name hash pointer modified comment workflow totalEntriesCount size }
		}
	}`
	var data struct {
		Packages struct {
			Nodes []PackageSummary `json:"nodes"`
		} `json:"packages"`
	}
	variables := map[string]any{"prefix": prefix, "limit": limit}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return data.Packages.Nodes, nil
}

// PackageEntry is one logical-key entry within a package revision.
type PackageEntry struct {
	LogicalKey string `json:"logicalKey"`
	PhysicalKey string `json:"physicalKey"`
	Size       int64  `json:"size"`
	Hash       string `json:"hash"`
}

func (c *Client) PackageEntries(ctx context.Context, name string, top int) ([]PackageEntry, error) {
	const query = `query($name: String!, $top: Int) {
		package(name: $name) { revision(hashOrTag: "latest") { entries(first: $top) { logicalKey physicalKey size hash } } }
	}`
	var data struct {
		Package struct {
			Revision struct {
				Entries []PackageEntry `json:"entries"`
			} `json:"revision"`
		} `json:"package"`
	}
	variables := map[string]any{"name": name, "top": top}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return data.Package.Revision.Entries, nil
}

// ObjectHit is one search_objects/bucket_objects GraphQL result row.
type ObjectHit struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Version string `json:"version"`
	Size    int64  `json:"size"`
	Modified string `json:"modified"`
	Deleted bool   `json:"deleted"`
	Indexed map[string]any `json:"indexedContent"`
}

// ObjectFilterInput is the GraphQL filter shape of spec.md §4.4.
type ObjectFilterInput struct {
	Ext  *TermsFilter  `json:"ext,omitempty"`
	Size *RangeFilter  `json:"size,omitempty"`
	Key  *WildcardFilter `json:"key,omitempty"`
}

type TermsFilter struct {
	Terms []string `json:"terms"`
}

type RangeFilter struct {
	GTE *int64 `json:"gte,omitempty"`
	LTE *int64 `json:"lte,omitempty"`
}

type WildcardFilter struct {
	Wildcard string `json:"wildcard"`
}

// SearchObjectsResult carries the "EmptySearchResultSet" discriminator of
// spec.md §4.4's pagination rules.
type SearchObjectsResult struct {
	Typename string      `json:"__typename"`
	Hits     []ObjectHit `json:"hits"`
}

func (c *Client) SearchObjects(ctx context.Context, searchString string, filter *ObjectFilterInput, buckets []string) (*SearchObjectsResult, error) {
	const query = `query($q: String!, $filter: ObjectFilterInput, $buckets: [String!]) {
		searchObjects(searchString: $q, filter: $filter, buckets: $buckets) {
			__typename
			... on ObjectsSearchResultSet { hits { bucket key version size modified deleted indexedContent } }
		}
	}`
	variables := map[string]any{"q": searchString, "filter": filter, "buckets": buckets}
	var data struct {
		SearchObjects SearchObjectsResult `json:"searchObjects"`
	}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return &data.SearchObjects, nil
}

type SearchPackagesResult struct {
	Typename string           `json:"__typename"`
	Hits     []PackageSummary `json:"hits"`
}

func (c *Client) SearchPackages(ctx context.Context, searchString string, latestOnly bool, buckets []string) (*SearchPackagesResult, error) {
	const query = `query($q: String!, $latestOnly: Boolean!, $buckets: [String!]) {
		searchPackages(searchString: $q, latestOnly: $latestOnly, buckets: $buckets) {
			__typename
			... on PackagesSearchResultSet { hits { bucket name hash pointer modified comment workflow totalEntriesCount size } }
		}
	}`
	variables := map[string]any{"q": searchString, "latestOnly": latestOnly, "buckets": buckets}
	var data struct {
		SearchPackages SearchPackagesResult `json:"searchPackages"`
	}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return &data.SearchPackages, nil
}

func (c *Client) BucketPackages(ctx context.Context, bucket, filter string, page, perPage int) ([]PackageSummary, error) {
	const query = `query($bucket: String!, $filter: String, $page: Int, $perPage: Int) {
		bucketConfig(name: $bucket) {
			packages(filter: $filter, page: $page, perPage: $perPage) {
				nodes { bucket name hash pointer modified comment workflow totalEntriesCount size }
			}
		}
	}`
	variables := map[string]any{"bucket": bucket, "filter": filter, "page": page, "perPage": perPage}
	var data struct {
		BucketConfig struct {
			Packages struct {
				Nodes []PackageSummary `json:"nodes"`
			} `json:"packages"`
		} `json:"bucketConfig"`
	}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return data.BucketConfig.Packages.Nodes, nil
}

func (c *Client) BucketObjects(ctx context.Context, bucket string, filter *ObjectFilterInput, first int, after string) ([]ObjectHit, error) {
	const query = `query($bucket: String!, $filter: ObjectFilterInput, $first: Int, $after: String) {
		bucketConfig(name: $bucket) {
			objects(filter: $filter, first: $first, after: $after) {
				nodes { bucket key version size modified deleted indexedContent }
			}
		}
	}`
	variables := map[string]any{"bucket": bucket, "filter": filter, "first": first, "after": nonEmptyOrNil(after)}
	var data struct {
		BucketConfig struct {
			Objects struct {
				Nodes []ObjectHit `json:"nodes"`
			} `json:"objects"`
		} `json:"bucketConfig"`
	}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return data.BucketConfig.Objects.Nodes, nil
}

// PackageRevisionRequest is the body of POST {registry}/api/package_revisions
// per spec.md §6.2.
type PackageRevisionRequest struct {
	Package  string         `json:"package"`
	S3URIs   []string       `json:"s3_uris"`
	Metadata map[string]any `json:"metadata"`
	Message  string         `json:"message"`
	Flatten  bool           `json:"flatten"`
	CopyMode string         `json:"copy_mode"`
}

type PackageRevisionResponse struct {
	TopHash string `json:"top_hash"`
}

func (c *Client) PackageCreate(ctx context.Context, req PackageRevisionRequest) (*PackageRevisionResponse, error) {
	var out PackageRevisionResponse
	if err := c.REST(ctx, "POST", "/api/package_revisions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PackageUpdate(ctx context.Context, req PackageRevisionRequest) (*PackageRevisionResponse, error) {
	var out PackageRevisionResponse
	if err := c.REST(ctx, "POST", "/api/package_revisions/update", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PackageDelete(ctx context.Context, name string) error {
	return c.REST(ctx, "DELETE", "/api/packages/"+name, nil, nil)
}

type BucketSearchResult struct {
	Hits []ObjectHit `json:"hits"`
}

func (c *Client) BucketSearch(ctx context.Context, bucket, query string, limit int) (*BucketSearchResult, error) {
	body := map[string]any{"bucket": bucket, "query": query, "limit": limit}
	var out BucketSearchResult
	if err := c.REST(ctx, "POST", "/api/search/bucket", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tabulator config management (spec.md §4.2 "Tabulator").

type TabulatorTable struct {
	Name       string `json:"name"`
	ConfigYAML string `json:"configYaml"`
}

func (c *Client) TablesList(ctx context.Context, bucket string) ([]TabulatorTable, error) {
	const query = `query($bucket: String!) {
		bucketConfig(name: $bucket) { tabulatorTables { name configYaml } }
	}`
	variables := map[string]any{"bucket": bucket}
	var data struct {
		BucketConfig struct {
			TabulatorTables []TabulatorTable `json:"tabulatorTables"`
		} `json:"bucketConfig"`
	}
	if err := c.Query(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	return data.BucketConfig.TabulatorTables, nil
}

// TableSet creates/updates/deletes (configYAML == "" deletes) a tabulator
// table definition, per spec.md §4.2.
func (c *Client) TableSet(ctx context.Context, bucket, table, configYAML string) error {
	const mutation = `mutation($bucket: String!, $table: String!, $config: String) {
		bucketSetTabulatorTable(bucketName: $bucket, tableName: $table, config: $config) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	variables := map[string]any{"bucket": bucket, "table": table, "config": nonEmptyOrNil(configYAML)}
	var raw struct {
		Result json.RawMessage `json:"bucketSetTabulatorTable"`
	}
	if err := c.Query(ctx, mutation, variables, &raw); err != nil {
		return err
	}
	return decodeUnion(raw.Result, nil)
}

func (c *Client) TableRename(ctx context.Context, bucket, oldName, newName string) error {
	const mutation = `mutation($bucket: String!, $old: String!, $new: String!) {
		bucketRenameTabulatorTable(bucketName: $bucket, tableName: $old, newTableName: $new) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	variables := map[string]any{"bucket": bucket, "old": oldName, "new": newName}
	var raw struct {
		Result json.RawMessage `json:"bucketRenameTabulatorTable"`
	}
	if err := c.Query(ctx, mutation, variables, &raw); err != nil {
		return err
	}
	return decodeUnion(raw.Result, nil)
}

func (c *Client) OpenQueryGet(ctx context.Context) (bool, error) {
	const query = `query { tabulatorOpenQuery }`
	var data struct {
		TabulatorOpenQuery bool `json:"tabulatorOpenQuery"`
	}
	if err := c.Query(ctx, query, nil, &data); err != nil {
		return false, err
	}
	return data.TabulatorOpenQuery, nil
}

func (c *Client) OpenQuerySet(ctx context.Context, enabled bool) error {
	const mutation = `mutation($enabled: Boolean!) {
		adminSetTabulatorOpenQuery(enabled: $enabled) {
			__typename
			... on OperationError { message }
		}
	}`
	variables := map[string]any{"enabled": enabled}
	var raw struct {
		Result json.RawMessage `json:"adminSetTabulatorOpenQuery"`
	}
	if err := c.Query(ctx, mutation, variables, &raw); err != nil {
		return err
	}
	return decodeUnion(raw.Result, nil)
}

func nonEmptyOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
