package packaging

import (
	"path"
	"strings"

	"github.com/quiltdata/quilt-mcp-server/internal/visualize"
)

// buildSummary produces the quilt_summarize.json shape of spec.md §4.5 step
// 8 — folder stats, file-type distribution, source info, and an access
// block — plus an optional dashboard hook, per SPEC_FULL.md's supplement
// from original_source's tools/quilt_summary.py.
func buildSummary(uris []s3URI, logicalKeys map[string]string, packageName, registryBucket string) map[string]any {
	folderCounts := make(map[string]int)
	extensions := make([]string, 0, len(uris))

	for _, u := range uris {
		key := logicalKeys[u.Raw]
		dir := "."
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			dir = key[:idx]
		}
		folderCounts[dir]++
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
		if ext != "" {
			extensions = append(extensions, ext)
		}
	}

	// Per-file sizes aren't fetched here (no HeadObject round trip per
	// entry); folder stats report counts only.
	folderStats := make([]map[string]any, 0, len(folderCounts))
	for folder, count := range folderCounts {
		folderStats = append(folderStats, map[string]any{
			"folder":     folder,
			"file_count": count,
		})
	}

	sourceBuckets := make(map[string]bool)
	for _, u := range uris {
		sourceBuckets[u.Bucket] = true
	}
	sameBucketCount := 0
	predicate := copyModePredicate(CopySameBucket, registryBucket)
	for _, u := range uris {
		if predicate(u) {
			sameBucketCount++
		}
	}

	sources := make([]string, 0, len(sourceBuckets))
	for b := range sourceBuckets {
		sources = append(sources, b)
	}

	summary := map[string]any{
		"package":            packageName,
		"folder_stats":       folderStats,
		"file_type_distribution": visualize.FileTypeDistribution(extensions),
		"source": map[string]any{
			"buckets":    sources,
			"file_count": len(uris),
		},
		"access": map[string]any{
			"registry":                  "s3://" + registryBucket,
			"same_bucket_entry_count":   sameBucketCount,
			"total_entry_count":         len(uris),
		},
	}

	if dashboardRows := fileTypeRows(extensions); len(dashboardRows) > 0 {
		if dashboard, err := visualize.BuildDashboard(
			[]visualize.ChartSpec{{Type: visualize.Bar, Title: "Files by type", XField: "extension", YField: "count"}},
			dashboardRows,
		); err == nil {
			summary["visualizations"] = dashboard
		}
	}

	return summary
}

func fileTypeRows(extensions []string) []map[string]any {
	dist := visualize.FileTypeDistribution(extensions)
	rows := make([]map[string]any, 0, len(dist))
	for _, d := range dist {
		rows = append(rows, d)
	}
	return rows
}
