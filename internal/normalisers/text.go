package normalisers

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaces   = regexp.MustCompile(`[ \t\f\v]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// CleanText repairs invalid UTF-8, applies NFC normalisation, unifies line
// endings and collapses runs of blank space. The result is what the
// chunker sees as a record's raw text.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\x00", "")
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiSpaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// TitleFromURL derives a human-readable title from the last path segment of a URL.
func TitleFromURL(rawURL string) string {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimSuffix(u, "/")
	name := path.Base(u)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	if name == "." || name == "/" || strings.Contains(name, ":") {
		return ""
	}
	return strings.TrimSpace(name)
}

// StringField reads the first non-empty value among keys from structured
// payload fields. Numbers and booleans decoded from JSON are formatted.
func StringField(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		case bool:
			return strconv.FormatBool(t)
		case []any:
			parts := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	}
	return ""
}
