package stringutil

import "strings"

// StripSourceExtension removes a trailing ".workpipe" extension from an
// import path or file name. This is used to standardize source identifiers
// (e.g. when naming the compiled YAML file after its source file) the way
// NormalizeWorkflowName stripped ".md"/".lock.yml" suffixes in the
// markdown-to-YAML pipeline this compiler descends from.
//
// This performs normalization only — it does not validate that the input
// is a legal path.
//
// Examples:
//
//	StripSourceExtension("release")            // "release"
//	StripSourceExtension("release.workpipe")    // "release"
//	StripSourceExtension("my.pipeline.workpipe") // "my.pipeline"
func StripSourceExtension(name string) string {
	return strings.TrimSuffix(name, ".workpipe")
}

// artifactSafe reports whether r is a character GitHub Actions allows in an
// artifact name: alphanumeric, '-', '_', or '.'.
func artifactSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	default:
		return false
	}
}

// SanitizeArtifactComponent rewrites s so it is safe to use as one
// dash-joined component of a cycle state/contribution artifact name
// (spec.md §4.5: "<workflow>-<cycle.key>-<iter>" and
// "<C>-contrib-<job>-<iter>"). Any character GitHub Actions would reject in
// an artifact name is replaced with "_"; '-', '_' and '.' are kept as they
// are, so dash-separated and underscore-separated keys stay distinct.
//
// Examples:
//
//	SanitizeArtifactComponent("retry loop")  // "retry_loop"
//	SanitizeArtifactComponent("refine/v2")   // "refine_v2"
//	SanitizeArtifactComponent("build-9")     // "build-9" (unchanged)
func SanitizeArtifactComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if artifactSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
