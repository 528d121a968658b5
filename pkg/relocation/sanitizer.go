package relocation

import (
	"regexp"
	"strings"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// Sanitizer decides whether a thought's content is sensitive enough to
// be deleted rather than retained when its owner's access changes.
type Sanitizer interface {
	ContainsSensitive(t *thought.CachedThought) bool
}

// SanitizerFunc adapts a plain function to the Sanitizer interface.
type SanitizerFunc func(t *thought.CachedThought) bool

// ContainsSensitive implements Sanitizer.
func (f SanitizerFunc) ContainsSensitive(t *thought.CachedThought) bool { return f(t) }

// secretRolePrefix marks an access_roles tag as denoting sensitive
// content, e.g. "secret:pii".
const secretRolePrefix = "secret:"

// defaultPIIPatterns are the regex-based PII/secret signals the default
// sanitizer scans prompt_text, reasoning_trace and final_response for.
var defaultPIIPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                  // US SSN
	regexp.MustCompile(`\b\d{13,19}\b`),                          // payment card-like digit run
	regexp.MustCompile(`(?i)\b(api[_-]?key|secret|password)\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)\bsecret\b`), // bare "secret" marker, e.g. "Secret R&D Formula"
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // email
}

// defaultEntityDenyList names entity labels whose presence on a thought
// marks it sensitive regardless of content, e.g. entities the extractor
// tags as personally identifying.
var defaultEntityDenyList = map[string]bool{
	"PII:ssn":    true,
	"PII:card":   true,
	"PII:health": true,
}

// DefaultSanitizer checks regex PII/secret patterns over the thought's
// text fields, an access_roles "secret:*" tag, and an entity-label deny
// list, grounded on the spec's three named signals.
var DefaultSanitizer Sanitizer = SanitizerFunc(func(t *thought.CachedThought) bool {
	for _, role := range t.AccessRoles {
		if strings.HasPrefix(role, secretRolePrefix) {
			return true
		}
	}
	for _, e := range t.Entities {
		if defaultEntityDenyList[e] {
			return true
		}
	}
	text := t.PromptText + "\n" + t.ReasoningTrace + "\n" + t.FinalResponse
	for _, pattern := range defaultPIIPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
})
