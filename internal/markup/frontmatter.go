package markup

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// SplitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Content without frontmatter, or with invalid YAML, is
// returned whole with a nil map.
func SplitFrontmatter(data []byte) (map[string]any, []byte) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, data
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, data
	}

	block := rest[:idx]
	body := bytes.TrimLeft(rest[idx+1+len(delim):], "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, data
	}
	return fm, body
}

// FrontmatterString returns fm[key] when it is a non-empty string.
func FrontmatterString(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}
