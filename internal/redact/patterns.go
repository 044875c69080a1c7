package redact

import "regexp"

// Pattern is one versioned redaction rule. Tag is the short type label
// appended to every replacement (e.g. "openai-key") so a redacted log line
// still communicates what kind of secret used to be there.
type Pattern struct {
	Name    string
	Tag     string
	Regex   *regexp.Regexp
	Version int
}

// defaultPatterns is the built-in, ordered pattern list. Order matters only
// in that more specific patterns should run before looser generic ones so a
// provider-specific key is tagged precisely rather than caught by a generic
// "token" fallback first — ReplaceAllStringFunc still runs every pattern in
// sequence, so a value surviving pattern N is still subject to pattern N+1.
var defaultPatterns = []Pattern{
	{Name: "anthropic-key", Tag: "anthropic-key", Version: 1, Regex: regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{40,}`)},
	{Name: "openai-key", Tag: "openai-key", Version: 1, Regex: regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{Name: "google-ai-key", Tag: "google-key", Version: 1, Regex: regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`)},
	{Name: "github-pat", Tag: "github-token", Version: 1, Regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},
	{Name: "aws-access-key", Tag: "aws-access-key", Version: 1, Regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{Name: "aws-secret-key", Tag: "aws-secret-key", Version: 1, Regex: regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key["'\s:=]+[A-Za-z0-9/+=]{40}`)},
	{Name: "slack-token", Tag: "slack-token", Version: 1, Regex: regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]{10,}`)},
	{Name: "ssh-fingerprint", Tag: "ssh-fingerprint", Version: 1, Regex: regexp.MustCompile(`SHA256:[A-Za-z0-9+/]{43}`)},
	{Name: "bearer-token", Tag: "bearer-token", Version: 1, Regex: regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`)},
	{Name: "generic-api-key", Tag: "api-key", Version: 1, Regex: regexp.MustCompile(`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
	{Name: "generic-secret", Tag: "secret", Version: 1, Regex: regexp.MustCompile(`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
	{Name: "generic-password", Tag: "password", Version: 1, Regex: regexp.MustCompile(`(?i)password["'\s:=]+[^\s"']{8,}`)},
	{Name: "generic-token", Tag: "token", Version: 1, Regex: regexp.MustCompile(`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
}

// DefaultPatterns returns a copy of the built-in pattern list so callers
// can append custom patterns without mutating the package default.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}
