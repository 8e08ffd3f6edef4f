package packaging

import (
	"fmt"
	"sort"
	"strings"
)

// generateReadme implements spec.md §4.5 step 7's "generate_readme is
// requested and none exists" path: a short description of the package's
// organization, total file count, source bucket, and basic usage, styled
// on original_source's tools/packaging.py README template.
func generateReadme(name string, uris []s3URI, logicalKeys map[string]string, registryBucket string) string {
	sourceBuckets := make(map[string]bool)
	for _, u := range uris {
		sourceBuckets[u.Bucket] = true
	}
	sources := make([]string, 0, len(sourceBuckets))
	for b := range sourceBuckets {
		sources = append(sources, b)
	}
	sort.Strings(sources)

	var folders []string
	seen := make(map[string]bool)
	for _, key := range logicalKeys {
		if key == "README.md" {
			continue
		}
		dir := "."
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			dir = key[:idx]
		}
		if !seen[dir] {
			seen[dir] = true
			folders = append(folders, dir)
		}
	}
	sort.Strings(folders)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "This package was assembled from %d source file(s) in %s.\n\n", len(uris), strings.Join(sources, ", "))
	b.WriteString("## Organization\n\n")
	for _, folder := range folders {
		fmt.Fprintf(&b, "- `%s/`\n", folder)
	}
	fmt.Fprintf(&b, "\n## Registry\n\nPublished to `s3://%s`.\n\n", registryBucket)
	b.WriteString("## Usage\n\n```python\nimport quilt3\np = quilt3.Package.browse(\"" + name + "\")\n```\n")
	return b.String()
}
