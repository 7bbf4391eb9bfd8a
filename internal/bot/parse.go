package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"feedback_bot/internal/filter"
)

const (
	defaultRecentHours = 24
	maxRecentHours     = 24 * 30
)

// ParseReportArgs parses the optional subject argument of /report.
func ParseReportArgs(args string, m *filter.Matcher) (string, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", nil
	}
	subject := strings.ToLower(strings.Fields(args)[0])
	if !m.IsTracked(subject) {
		return "", fmt.Errorf("unknown app %q, tracked apps: %s", subject, strings.Join(m.Subjects(), ", "))
	}
	return subject, nil
}

// ParseRecentArgs parses the [app] [hours] arguments of /recent and returns
// the subject filter and the cutoff time.
func ParseRecentArgs(args string, m *filter.Matcher) (string, time.Time, error) {
	hours := defaultRecentHours
	subject := ""

	for _, part := range strings.Fields(args) {
		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > maxRecentHours {
				return "", time.Time{}, fmt.Errorf("hours must be between 1 and %d", maxRecentHours)
			}
			hours = n
			continue
		}
		s := strings.ToLower(part)
		if !m.IsTracked(s) {
			return "", time.Time{}, fmt.Errorf("unknown app %q, tracked apps: %s", s, strings.Join(m.Subjects(), ", "))
		}
		subject = s
	}

	return subject, time.Now().UTC().Add(-time.Duration(hours) * time.Hour), nil
}
