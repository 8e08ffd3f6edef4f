package packaging

import (
	"fmt"
	"path"
	"strings"
)

// organizeLogicalKeys implements spec.md §4.5 step 5: flat mode uses the
// basename with numeric-prefix disambiguation on collision; smart mode
// buckets files into folders by extension/substring, per the table in
// spec.md §4.5.
func organizeLogicalKeys(uris []s3URI, flatten bool) map[string]string {
	logicalKeys := make(map[string]string, len(uris))
	used := make(map[string]int)

	for _, u := range uris {
		var key string
		if flatten {
			key = path.Base(u.Key)
		} else {
			key = path.Join(folderFor(u.Key), path.Base(u.Key))
		}

		if n, seen := used[key]; seen {
			used[key] = n + 1
			key = fmt.Sprintf("%d_%s", n+1, key)
		} else {
			used[key] = 0
		}

		logicalKeys[u.Raw] = key
	}

	return logicalKeys
}

// folderFor derives the smart-folder destination for one source key, per
// spec.md §4.5 step 5's extension table and README/schema/config overrides.
func folderFor(key string) string {
	lowerBase := strings.ToLower(path.Base(key))

	switch {
	case strings.Contains(lowerBase, "readme"):
		return "docs"
	case strings.Contains(lowerBase, "schema"):
		return "docs/schemas"
	case strings.Contains(lowerBase, "config"):
		return "metadata"
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(lowerBase), "."))
	switch ext {
	case "csv", "json", "parquet":
		return "data/processed"
	case "log", "txt", "raw":
		return "data/raw"
	case "md", "rst", "pdf":
		return "docs"
	case "yml", "yaml", "toml", "ini", "conf":
		return "metadata"
	case "png", "jpg", "jpeg", "mp4", "avi":
		return "data/media"
	default:
		return "data/misc"
	}
}

// copyModePredicate implements spec.md §4.5 step 6's per-entry copy
// decision. Submission itself passes copy_mode through to the catalog
// (which enforces it server-side); this predicate exists for callers (e.g.
// dry-run previews) that want to show what same_bucket would include
// without calling the catalog.
func copyModePredicate(mode CopyMode, registryBucket string) func(u s3URI) bool {
	switch mode {
	case CopyNone:
		return func(s3URI) bool { return false }
	case CopySameBucket:
		return func(u s3URI) bool { return u.Bucket == registryBucket }
	default:
		return func(s3URI) bool { return true }
	}
}

func withoutSentinel(keys map[string]string) map[string]string {
	out := make(map[string]string, len(keys))
	for k, v := range keys {
		if k == "__readme__" {
			continue
		}
		out[k] = v
	}
	return out
}
