package search

import "strings"

// fileExtensionTokens is the fixed extension set of spec.md §4.4's query
// intent classification.
var fileExtensionTokens = []string{
	"csv", "json", "parquet", "ipynb", "bam", "vcf", "txt", "tsv", "xlsx", "fasta", "fastq",
}

var objectKeywords = []string{"file", "files", "object", "objects"}
var packageKeywords = []string{"package", "packages", "dataset", "datasets", "collection", "project", "study"}

// ClassifyIntent implements spec.md §4.4's classification used when
// SearchType == "auto", styled on clanker's semantic.Analyzer: a purely
// lexical pass over fixed keyword sets, no external NLP call.
func ClassifyIntent(text string) string {
	lower := strings.ToLower(text)

	if hasWildcardExtension(lower) || hasExtensionToken(lower) || containsAny(lower, objectKeywords) {
		return "objects"
	}
	if containsAny(lower, packageKeywords) {
		return "packages"
	}
	return "objects"
}

func hasWildcardExtension(lower string) bool {
	return strings.Contains(lower, "*.")
}

func hasExtensionToken(lower string) bool {
	for _, ext := range fileExtensionTokens {
		if strings.Contains(lower, "."+ext) {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	fields := strings.Fields(text)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?")] = true
	}
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}
