// Package filter decides which incoming messages qualify as feedback.
package filter

import (
	"regexp"
	"strings"
)

// Matcher matches message text against the tracked-subject list.
type Matcher struct {
	subjects []string
	patterns []*regexp.Regexp
}

// New builds a Matcher for the given subjects. Matching is case-insensitive
// and bounded at word edges, so "cora" does not match "coral".
func New(subjects []string) *Matcher {
	m := &Matcher{}
	for _, s := range subjects {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		m.subjects = append(m.subjects, s)
		m.patterns = append(m.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(s)+`\b`))
	}
	return m
}

// Subjects returns the tracked subjects in configuration order.
func (m *Matcher) Subjects() []string {
	return m.subjects
}

// Match returns the tracked subjects mentioned in text, in configuration
// order. Empty or unmatched text yields nil.
func (m *Matcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	var matched []string
	for i, p := range m.patterns {
		if p.MatchString(text) {
			matched = append(matched, m.subjects[i])
		}
	}
	return matched
}

// Relevant applies the full capture rule: service accounts are excluded so the
// bot never reacts to its own (or another bot's) output.
func (m *Matcher) Relevant(text string, authorIsBot bool) []string {
	if authorIsBot {
		return nil
	}
	return m.Match(text)
}

// IsTracked reports whether subject is one of the tracked subjects.
func (m *Matcher) IsTracked(subject string) bool {
	subject = strings.ToLower(subject)
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}
