package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// PR ref patterns:
	// - owner/repo/pr/123
	// - owner/repo#123
	// - owner/repo/pull/123
	// - https://github.com/owner/repo/pull/123
	prRefPattern1 = regexp.MustCompile(`^([^/\s]+)/([^/\s#]+)/pr/(\d+)$`)
	prRefPattern2 = regexp.MustCompile(`^([^/\s]+)/([^/\s#]+)#(\d+)$`)
	prRefPattern3 = regexp.MustCompile(`^([^/\s]+)/([^/\s#]+)/pull/(\d+)$`)
	prURLPattern  = regexp.MustCompile(`^https?://[^/]+/([^/\s]+)/([^/\s#]+)/pull/(\d+)/?$`)
)

// Ref identifies a pull request on a repository.
type Ref struct {
	Owner  string
	Repo   string
	Number int
}

// ParseRef parses a pull request reference string into its components.
// Supported formats:
//   - owner/repo/pr/123
//   - owner/repo#123
//   - owner/repo/pull/123
//   - https://github.com/owner/repo/pull/123
func ParseRef(target string) (*Ref, error) {
	target = strings.TrimSpace(target)

	for _, pattern := range []*regexp.Regexp{prRefPattern1, prRefPattern2, prRefPattern3, prURLPattern} {
		matches := pattern.FindStringSubmatch(target)
		if matches == nil {
			continue
		}
		num, err := strconv.Atoi(matches[3])
		if err != nil || num <= 0 {
			return nil, fmt.Errorf("invalid pull request number in %q", target)
		}
		return &Ref{
			Owner:  matches[1],
			Repo:   matches[2],
			Number: num,
		}, nil
	}

	return nil, fmt.Errorf("invalid GitHub reference format: %s (expected: owner/repo/pr/123, owner/repo#123, owner/repo/pull/123, or a pull request URL)", target)
}

// String returns the string representation of the reference
func (r Ref) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}
