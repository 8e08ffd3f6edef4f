package jwtauth

// permissionAbbreviations is the fixed abbreviation table the compressed
// claim codec expands against; a token not found here passes through
// literally so new permissions never need a codec change (spec.md §9
// "preserve the compression scheme as an opaque codec module").
var permissionAbbreviations = map[string]string{
	"s3go": "s3:GetObject",
	"s3po": "s3:PutObject",
	"s3lb": "s3:ListBucket",
	"s3ho": "s3:HeadObject",
	"qbp":  "quilt:BrowsePackages",
	"qup":  "quilt:UpdatePackage",
	"qad":  "quilt:AdminUsers",
}

// expandClaims expands the payload's normalized claims (spec.md §3.1
// Claims: "unknown/malformed shapes degrade to empty arrays"). If the
// payload carries a compressed "ec" blob, it is expanded losslessly into
// permissions/buckets/roles; otherwise the already-expanded top-level
// arrays are used directly.
func expandClaims(payload map[string]any) Claims {
	if ec, ok := payload["ec"]; ok {
		return expandCompressed(ec)
	}
	return Claims{
		Permissions: nonNil(stringSlice(payload["permissions"])),
		Buckets:     nonNil(stringSlice(payload["buckets"])),
		Roles:       nonNil(stringSlice(payload["roles"])),
	}
}

func expandCompressed(ec any) Claims {
	m, ok := ec.(map[string]any)
	if !ok {
		return Claims{Permissions: []string{}, Buckets: []string{}, Roles: []string{}}
	}

	return Claims{
		Permissions: expandTokens(m["p"], permissionAbbreviations),
		Buckets:     expandTokens(m["b"], nil),
		Roles:       expandTokens(m["r"], nil),
	}
}

func expandTokens(raw any, table map[string]string) []string {
	tokens := stringSlice(raw)
	if tokens == nil {
		return []string{}
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if table != nil {
			if full, ok := table[t]; ok {
				out = append(out, full)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// stringSlice safely coerces a JSON-decoded []any of strings (or nil) into
// []string, returning nil (never panicking) on any other shape.
func stringSlice(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
