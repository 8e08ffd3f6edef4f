// Package config loads server configuration the way clanker's cmd/root.go
// initConfig does: a YAML file plus environment overrides bound through
// viper, with cobra persistent flags taking precedence over the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the immutable, process-wide configuration snapshot built once
// at startup and handed to every other package's constructor.
type Config struct {
	Debug bool

	JWTSecret            string
	JWTSecretSSMParam    string
	JWTKeyID             string
	AWSRegion            string
	DefaultRegistry      string
	CatalogURL           string
	ToolPermissions      map[string][]string
	AllowWritePermProbe  bool
}

// defaultToolPermissions mirrors bearer_auth_service.py's
// _build_tool_permissions base table (spec.md §4.1).
func defaultToolPermissions() map[string][]string {
	return map[string][]string{
		"bucket_object_info":   {"s3:GetObject", "s3:ListBucket"},
		"bucket_object_text":   {"s3:GetObject"},
		"bucket_objects_list":  {"s3:ListBucket"},
		"bucket_object_fetch":  {"s3:GetObject"},
		"bucket_objects_put":   {"s3:PutObject"},
		"package_create_from_s3": {"s3:GetObject", "s3:ListBucket"},
		"package_browse":       {"quilt:BrowsePackages"},
		"package_create":       {"quilt:UpdatePackage"},
		"package_update":       {"quilt:UpdatePackage"},
		"package_delete":       {"quilt:UpdatePackage"},
		"unified_search":       {"quilt:BrowsePackages"},
	}
}

// Load builds a Config from viper (which must already have flags bound and
// AutomaticEnv() enabled by the caller, as cmd/root.go does).
func Load(v *viper.Viper) *Config {
	perms := defaultToolPermissions()
	if raw := v.GetString("MCP_TOOL_PERMISSIONS"); raw != "" {
		applyPermissionOverrides(perms, raw)
	}

	region := v.GetString("AWS_REGION")
	if region == "" {
		region = v.GetString("AWS_DEFAULT_REGION")
	}

	return &Config{
		Debug:               v.GetBool("debug"),
		JWTSecret:           v.GetString("MCP_ENHANCED_JWT_SECRET"),
		JWTSecretSSMParam:   v.GetString("MCP_ENHANCED_JWT_SECRET_SSM_PARAMETER"),
		JWTKeyID:            firstNonEmpty(v.GetString("MCP_ENHANCED_JWT_KID"), "frontend-enhanced"),
		AWSRegion:           region,
		DefaultRegistry:     v.GetString("DEFAULT_REGISTRY"),
		CatalogURL:          v.GetString("QUILT_CATALOG_URL"),
		ToolPermissions:     perms,
		AllowWritePermProbe: v.GetBool("MCP_ALLOW_WRITE_PROBE"),
	}
}

func applyPermissionOverrides(perms map[string][]string, raw string) {
	var overrides map[string]any
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		fmt.Fprintf(os.Stderr, "WARN failed to parse MCP_TOOL_PERMISSIONS override: %v\n", err)
		return
	}
	for tool, v := range overrides {
		switch val := v.(type) {
		case []any:
			list := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := item.(string); ok {
					list = append(list, s)
				}
			}
			perms[tool] = list
		case string:
			perms[tool] = []string{val}
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// RunningInContainerRuntime detects the cloud container runtime the way
// bearer_auth_service.py's _running_in_aws does: ECS/Lambda-style markers.
func RunningInContainerRuntime() bool {
	return os.Getenv("AWS_EXECUTION_ENV") != "" || os.Getenv("ECS_CONTAINER_METADATA_URI_V4") != ""
}
