package thalamus

import (
	"strings"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/openclaw/openclaw/internal/signals"
)

// Matcher is a conjunction of zero or more predicates. An empty
// SignalTypes matches every signal type; a zero-value Matcher matches
// every signal.
type Matcher struct {
	SignalTypes  []signals.Type
	PathPatterns []string
	MagicString  string
	Custom       func(signals.Signal) bool
}

func (m Matcher) matches(s signals.Signal) bool {
	if len(m.SignalTypes) > 0 && !containsType(m.SignalTypes, s.Type) {
		return false
	}
	if len(m.PathPatterns) > 0 {
		path, ok := signalPath(s)
		if !ok || !matchesAnyGlob(m.PathPatterns, path) {
			return false
		}
	}
	if m.MagicString != "" {
		content, ok := signalContent(s)
		if !ok || !strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), m.MagicString) {
			return false
		}
	}
	if m.Custom != nil && !m.Custom(s) {
		return false
	}
	return true
}

func containsType(types []signals.Type, t signals.Type) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

// signalPath extracts the path field carried by payload shapes that
// have one. Signals without a path field never match a path pattern.
func signalPath(s signals.Signal) (string, bool) {
	switch p := s.Payload.(type) {
	case signals.NoteModifiedPayload:
		return p.Path, true
	case signals.FileChangedPayload:
		return p.Path, true
	case *signals.NoteModifiedPayload:
		if p == nil {
			return "", false
		}
		return p.Path, true
	case *signals.FileChangedPayload:
		if p == nil {
			return "", false
		}
		return p.Path, true
	default:
		return "", false
	}
}

// signalContent extracts the content field, used for magic-string
// matching.
func signalContent(s signals.Signal) (string, bool) {
	switch p := s.Payload.(type) {
	case signals.NoteModifiedPayload:
		return p.Content, true
	case *signals.NoteModifiedPayload:
		if p == nil {
			return "", false
		}
		return p.Content, true
	default:
		return "", false
	}
}

func matchesAnyGlob(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchGlob(p, path) {
			return true
		}
	}
	return false
}

// matchGlob implements the router's path glob semantics: "**" matches
// zero or more path segments, "*" matches exactly one segment, every
// other character is literal. Patterns are anchored at both ends.
// Literal segment comparisons are delegated to wildcard.Match, which
// degrades to exact equality for patterns with no special characters
// but also lets an operator embed shell-style globs inside a single
// path segment (e.g. "notes/*.md") without a second matcher.
func matchGlob(pattern, path string) bool {
	return matchSegments(splitPath(pattern), splitPath(path))
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}

	if pat[0] == "**" {
		if len(pat) == 1 {
			return true
		}
		for i := 0; i <= len(path); i++ {
			if matchSegments(pat[1:], path[i:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}

	if pat[0] == "*" {
		return matchSegments(pat[1:], path[1:])
	}

	if !wildcard.Match(pat[0], path[0]) {
		return false
	}
	return matchSegments(pat[1:], path[1:])
}
