package tools

import (
	"regexp"
	"strings"
)

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	repeatedSep      = regexp.MustCompile(`_{2,}|-{2,}`)
)

// SanitizeName lowercases s, replaces every run of characters outside
// [a-z0-9_-] with "_", collapses repeated separators and trims separators
// from both ends.
func SanitizeName(s string) string {
	out := invalidNameChars.ReplaceAllString(strings.ToLower(s), "_")
	out = repeatedSep.ReplaceAllStringFunc(out, func(m string) string { return m[:1] })
	return strings.Trim(out, "_-")
}

// RetrievalToolName derives the virtual tool name for a retrieval source.
func RetrievalToolName(sourceName, sourceID string) string {
	name := SanitizeName(sourceName)
	id := SanitizeName(sourceID)
	switch {
	case name != "" && id != "":
		return "search_" + name + "_" + id
	case id != "":
		return "search_" + id
	case name != "":
		return "search_" + name
	default:
		return "search"
	}
}
