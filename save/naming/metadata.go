package naming

import (
	"regexp"
	"strings"
)

// metadataTag matches \g<name> references in a template.
var metadataTag = regexp.MustCompile(`\\g<([^<>]+)>`)

// FindMetadataTokens returns the tag names referenced by template, in order
// of first appearance.
func FindMetadataTokens(template string) []string {
	matches := metadataTag.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		tokens = append(tokens, m[1])
	}
	return tokens
}

// ApplyMetadata substitutes every \g<tag> in template with metadata[tag].
// The first tag without a value fails the whole substitution.
func ApplyMetadata(template string, metadata map[string]string) (string, error) {
	locs := metadataTag.FindAllStringSubmatchIndex(template, -1)
	if len(locs) == 0 {
		return template, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		tag := template[loc[2]:loc[3]]
		value, ok := metadata[tag]
		if !ok {
			return "", missingTag(tag)
		}
		b.WriteString(template[last:loc[0]])
		b.WriteString(value)
		last = loc[1]
	}
	b.WriteString(template[last:])
	return b.String(), nil
}
