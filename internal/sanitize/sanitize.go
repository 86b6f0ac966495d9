// Package sanitize strips HTML from user-supplied display text. Prompt
// descriptions and tag names are plain text that ends up rendered in list
// views, so any markup in them is unwanted. Uses bluemonday's strict policy,
// which removes every element and keeps only the text content.
//
// Prompt content is deliberately NOT sanitized: prompt templates routinely
// contain <angle-bracket placeholders> that must be stored verbatim.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once
// for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML markup from a plain-text field and unescapes the
// entities bluemonday introduces, so "Tips & Tricks" survives a round trip
// unchanged while "<script>x</script>" collapses to "x".
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
