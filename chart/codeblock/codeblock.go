// Package codeblock pulls fenced code out of model replies.
package codeblock

import (
	"regexp"
	"strings"
)

var (
	pythonBlock  = regexp.MustCompile("(?s)```python\\s*(.*?)\\s*```")
	genericBlock = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	taggedBlock  = regexp.MustCompile("(?s)```([^\\n`]*)\\n(.*?)```")
)

var pythonTags = map[string]bool{"": true, "python": true, "py": true, "python3": true}

// ExtractPython returns the first ```python block, falling back to the first
// unlabelled block. ok is false when text holds no fenced code.
func ExtractPython(text string) (code string, ok bool) {
	if m := pythonBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := genericBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// ExtractAll returns every non-empty Python or untagged fenced block in order.
// Blocks tagged with another language are skipped.
func ExtractAll(text string) []string {
	var blocks []string
	for _, m := range taggedBlock.FindAllStringSubmatch(text, -1) {
		if !pythonTags[strings.ToLower(strings.TrimSpace(m[1]))] {
			continue
		}
		if code := strings.TrimSpace(m[2]); code != "" {
			blocks = append(blocks, code)
		}
	}
	return blocks
}
