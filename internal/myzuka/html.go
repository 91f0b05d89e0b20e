package myzuka

import (
	"html"
	"regexp"
	"strings"
)

var (
	anchorPattern = regexp.MustCompile(`(?is)<a\s[^>]*>`)
	attrPattern   = regexp.MustCompile(`([\w:-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// tag is the attribute set of one HTML start tag.
type tag map[string]string

// anchors returns the start tags of every <a> element in page order.
func anchors(page string) []tag {
	var out []tag
	for _, raw := range anchorPattern.FindAllString(page, -1) {
		out = append(out, parseTag(raw))
	}
	return out
}

func parseTag(raw string) tag {
	t := tag{}
	for _, m := range attrPattern.FindAllStringSubmatch(raw, -1) {
		name := strings.ToLower(m[1])
		if _, seen := t[name]; seen {
			continue
		}
		value := m[2]
		if value == "" {
			value = m[3]
		}
		t[name] = html.UnescapeString(value)
	}
	return t
}

// hasClass reports whether the class attribute lists name.
func (t tag) hasClass(name string) bool {
	for _, c := range strings.Fields(t["class"]) {
		if c == name {
			return true
		}
	}
	return false
}
