// Package masking redacts credential-shaped substrings from text before it
// is persisted or published [orig §7]: error_message must never echo raw
// LLM content, and the LLM may have echoed back a secret from the
// thought text it was given. Narrowed from the teacher's full MCP tool
// result / alert payload masking surface, which has no equivalent here.
package masking

import "regexp"

// compiledPattern pairs a regex with the literal replacement it installs.
type compiledPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// patterns is the fixed set of builtin patterns relevant to LLM-echoed
// error text, adapted from the teacher's builtin masking pattern catalog.
// Patterns needing MCP-server- or alert-type-specific scoping (custom
// patterns, pattern groups, code maskers like the Kubernetes secret
// masker) are dropped — there is no per-server config surface here.
var patterns = compilePatterns([]struct {
	pattern     string
	replacement string
}{
	{`(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`, `api_key: [MASKED_API_KEY]`},
	{`(?i)(?:password|pwd|pass)["']?\s*[:=]\s*["']?([^"'\s\n]{6,})["']?`, `password: [MASKED_PASSWORD]`},
	{`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`, `[MASKED_CERTIFICATE]`},
	{`(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, `token: [MASKED_TOKEN]`},
	{`(?i)(?:private[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, `private_key: [MASKED_PRIVATE_KEY]`},
	{`(?i)(?:secret[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-.]{20,})["']?`, `secret_key: [MASKED_SECRET_KEY]`},
	{`(?i)(?:aws[_-]?access[_-]?key[_-]?id)["']?\s*[:=]\s*["']?(AKIA[A-Z0-9]{16})["']?`, `aws_access_key_id: [MASKED_AWS_KEY]`},
	{`(?i)(?:github[_-]?token|gh[ps]_[A-Za-z0-9_]{36,255})`, `[MASKED_GITHUB_TOKEN]`},
	{`(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`, `[MASKED_SLACK_TOKEN]`},
	{`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`, `[MASKED_EMAIL]`},
})

func compilePatterns(specs []struct {
	pattern     string
	replacement string
}) []compiledPattern {
	compiled := make([]compiledPattern, 0, len(specs))
	for _, spec := range specs {
		compiled = append(compiled, compiledPattern{
			regex:       regexp.MustCompile(spec.pattern),
			replacement: spec.replacement,
		})
	}
	return compiled
}

// Redact applies every builtin pattern to text in order, replacing each
// match with its fixed placeholder. Safe to call on arbitrary text; a
// string with nothing to redact is returned unchanged.
func Redact(text string) string {
	for _, p := range patterns {
		text = p.regex.ReplaceAllString(text, p.replacement)
	}
	return text
}
