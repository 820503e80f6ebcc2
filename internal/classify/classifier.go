package classify

import (
	"strings"

	"github.com/caselka/DirtyWaters/internal/model"
)

// redirectStatuses are the HTTP statuses whose Location header is considered
// classifier input.
var redirectStatuses = map[int]bool{
	301: true,
	302: true,
	303: true,
	307: true,
	308: true,
}

// Classifier maps one HTTP exchange to a verdict using configured indicator
// substrings. It holds no connection state and is safe to reuse across
// attempts.
type Classifier struct {
	successIndicators []string
	failureIndicators []string
}

// New creates a Classifier from ordered indicator sets. Both sets may be
// empty; an empty set simply never matches. The slices are copied so later
// mutation by the caller cannot change classification behavior mid-run.
func New(successIndicators, failureIndicators []string) *Classifier {
	return &Classifier{
		successIndicators: append([]string(nil), successIndicators...),
		failureIndicators: append([]string(nil), failureIndicators...),
	}
}

// Classify returns the verdict for one observed response.
//
// The order of checks is fixed:
//  1. Redirect status with a success indicator in the redirect target.
//  2. Success indicator in the body.
//  3. Failure indicator in the body.
//  4. Unknown.
//
// Matching is case-sensitive substring matching, first match wins.
func (c *Classifier) Classify(statusCode int, redirectTarget, body string) model.Verdict {
	if redirectStatuses[statusCode] && containsAny(redirectTarget, c.successIndicators) {
		return model.VerdictSuccess
	}
	if containsAny(body, c.successIndicators) {
		return model.VerdictSuccess
	}
	if containsAny(body, c.failureIndicators) {
		return model.VerdictFailed
	}
	return model.VerdictUnknown
}

// containsAny reports whether text contains at least one of the indicators.
// An empty indicator set matches nothing.
func containsAny(text string, indicators []string) bool {
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
