package extractor

import "strings"

const systemPrompt = `You map search queries to resource tags.
Pick the 1 to 3 tags from the available tags that best match the intent of the query, most relevant first.
Only use tags from the available list, spelled exactly as given.
Answer with exactly two lines:
tags: <comma-separated tags>
reasoning: <one short sentence explaining the choice>`

// parseCompletion splits model output into its raw tags field and reasoning.
// Output without a "tags:" line is read as a bare tag list on its first
// non-empty line.
func parseCompletion(text string) (rawTags, reasoning string) {
	var first string
	found := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		if v, ok := cutLabel(line, "tags", "top_tags"); ok && !found {
			rawTags, found = v, true
			continue
		}
		if v, ok := cutLabel(line, "reasoning"); ok && reasoning == "" {
			reasoning = v
		}
	}
	if !found {
		rawTags = first
	}
	return rawTags, reasoning
}

// cutLabel strips a leading "label:" (case-insensitive, optional markdown
// emphasis) from line.
func cutLabel(line string, labels ...string) (string, bool) {
	l := strings.TrimLeft(line, "*_-# ")
	lower := strings.ToLower(l)
	for _, label := range labels {
		if strings.HasPrefix(lower, label) {
			rest := strings.TrimLeft(l[len(label):], "*_ ")
			if strings.HasPrefix(rest, ":") {
				return strings.TrimSpace(strings.TrimLeft(rest[1:], "*_ ")), true
			}
		}
	}
	return "", false
}

// splitTags splits a comma-separated field and trims each token.
func splitTags(field string) []string {
	field = strings.Trim(strings.TrimSpace(field), "[]")
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, " \t\"'*.`")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
