package metadata

import "strings"

var tagReplacer = strings.NewReplacer("(", "", ")", "", "&", "-", "#", "-")

// Tags turns the free-text subject attribute into clean tag tokens.
//
// A single subject string is split on commas. A repeated subject keeps one
// tag per occurrence, except that occurrences which still hold a ", "
// separated list are expanded in place: their tokens take the entry's
// position rather than moving to the end. Tokens are trimmed, empty tokens
// dropped, and duplicates removed keeping the first occurrence.
func Tags(m *Metadata) []string {
	v, _, ok := m.lookup(subjectKeys)
	if !ok {
		return nil
	}

	var raw []string
	if !v.IsList() {
		raw = strings.Split(tagReplacer.Replace(v.First()), ",")
	} else {
		for _, subject := range v.Items() {
			cleaned := tagReplacer.Replace(subject)
			if strings.Contains(cleaned, ", ") {
				raw = append(raw, strings.Split(cleaned, ",")...)
				continue
			}
			raw = append(raw, cleaned)
		}
	}

	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
