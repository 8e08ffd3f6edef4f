package packaging

import "time"

// metadataTemplates mirrors original_source's tools/metadata_templates.py
// METADATA_TEMPLATES table: small starting-point metadata dicts for common
// package types, overlaid with whatever the caller supplies.
var metadataTemplates = map[string]map[string]any{
	"standard": {
		"description":  "Standard data package",
		"package_type": "data",
		"version":      "1.0.0",
	},
	"genomics": {
		"description":         "Genomics data package",
		"package_type":        "genomics",
		"data_type":           "genomics",
		"organism":            "unknown",
		"genome_build":        "unknown",
		"sequencing_platform": "unknown",
		"analysis_type":       "unknown",
		"version":             "1.0.0",
	},
	"ml": {
		"description":     "Machine learning dataset",
		"package_type":    "ml_dataset",
		"data_type":       "machine_learning",
		"dataset_stage":   "processed",
		"model_ready":     true,
		"features_count":  "unknown",
		"target_variable": "unknown",
		"version":         "1.0.0",
	},
	"research": {
		"description":        "Research data package",
		"package_type":       "research",
		"data_type":          "research",
		"study_type":         "unknown",
		"research_domain":    "unknown",
		"publication_status": "unpublished",
		"version":            "1.0.0",
	},
	"analytics": {
		"description":      "Business analytics data package",
		"package_type":     "analytics",
		"data_type":        "business_analytics",
		"analysis_period":  "unknown",
		"business_unit":    "unknown",
		"metrics_included": []string{},
		"version":          "1.0.0",
	},
}

// applyTemplate implements spec.md §4.5 step 2: "If template is requested,
// start from a template dict and overlay user metadata." An unknown
// template name falls back to "standard", matching
// get_metadata_template's behavior.
func applyTemplate(name string, metadata map[string]any) map[string]any {
	base, ok := metadataTemplates[name]
	if !ok {
		base = metadataTemplates["standard"]
	}
	out := cloneMap(base)
	out["created_by"] = "quilt-mcp-server"
	out["creation_date"] = time.Now().UTC().Format(time.RFC3339)
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
