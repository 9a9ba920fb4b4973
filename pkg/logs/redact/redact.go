// Package redact scrubs secrets from text reportbot writes to CI logs,
// workflow annotations and result files.
package redact

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

// Mode represents the redaction mode.
type Mode string

const (
	// ModeOff disables redaction.
	ModeOff Mode = "off"
	// ModeBasic redacts registered secrets, credential headers, credential
	// query parameters and GitHub token formats. This is the default.
	ModeBasic Mode = "basic"
	// ModeAggressive additionally redacts KEY=VALUE assignments whose key
	// looks like a credential.
	ModeAggressive Mode = "aggressive"

	// DefaultReplacement is written in place of each redacted value.
	DefaultReplacement = "***REDACTED***"

	// Environment variables read by FromEnv.
	EnvMode        = "REPORTBOT_LOG_REDACT"
	EnvCustomKeys  = "REPORTBOT_LOG_REDACT_KEYS"
	EnvReplacement = "REPORTBOT_LOG_REDACT_REPLACEMENT"
)

var (
	headerRe = regexp.MustCompile(`(?i)\b(Authorization|Proxy-Authorization|X-GitHub-Token)(\s*:\s*)([^\r\n]+)`)
	queryRe  = regexp.MustCompile(`(?i)([?&](?:access_token|token|client_secret|api_key)=)[^&\s#'"]+`)

	// GitHub token formats: classic (ghp_, gho_, ghu_, ghs_, ghr_) and
	// fine-grained personal access tokens.
	githubTokenRe = regexp.MustCompile(`\b(gh[pousr]_)[A-Za-z0-9]{36,255}\b|\b(github_pat_)[A-Za-z0-9_]{22,255}\b`)

	defaultKeys = []string{"TOKEN", "SECRET", "PASSWORD", "API_KEY", "AUTHORIZATION"}
)

// Redactor replaces secrets in text.
type Redactor struct {
	mode        Mode
	replacement string
	secrets     []string
	assignRe    *regexp.Regexp
}

// Config holds configuration for a Redactor.
type Config struct {
	Mode        Mode     // off, basic or aggressive; empty means basic
	CustomKeys  []string // extra key fragments for aggressive mode, e.g. "SONAR_LOGIN"
	Replacement string   // defaults to DefaultReplacement
	Secrets     []string // literal values always redacted unless mode is off
}

// New creates a Redactor.
func New(cfg Config) *Redactor {
	r := &Redactor{
		mode:        ParseMode(string(cfg.Mode)),
		replacement: cfg.Replacement,
	}
	if r.replacement == "" {
		r.replacement = DefaultReplacement
	}
	for _, s := range cfg.Secrets {
		r.AddSecret(s)
	}

	keys := append([]string{}, defaultKeys...)
	for _, k := range cfg.CustomKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, regexp.QuoteMeta(strings.ToUpper(k)))
		}
	}
	r.assignRe = regexp.MustCompile(`\b([A-Z0-9_]*(?:` + strings.Join(keys, "|") + `)[A-Z0-9_]*)(\s*=\s*)(?:"[^"]*"|'[^']*'|[^\s'"]+)`)

	return r
}

// ParseMode maps s to a Mode. Unknown or empty values yield ModeBasic.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOff:
		return ModeOff
	case ModeAggressive:
		return ModeAggressive
	default:
		return ModeBasic
	}
}

// FromEnv creates a Redactor configured from REPORTBOT_LOG_REDACT*
// variables, with secrets registered as literals.
func FromEnv(secrets ...string) *Redactor {
	var keys []string
	if raw := os.Getenv(EnvCustomKeys); raw != "" {
		keys = strings.Split(raw, ",")
	}
	return New(Config{
		Mode:        Mode(os.Getenv(EnvMode)),
		CustomKeys:  keys,
		Replacement: os.Getenv(EnvReplacement),
		Secrets:     secrets,
	})
}

// Mode returns the active mode.
func (r *Redactor) Mode() Mode {
	return r.mode
}

// AddSecret registers a literal value to redact. Values shorter than four
// characters are ignored.
func (r *Redactor) AddSecret(secret string) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 4 {
		return
	}
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
	// Longest first so a secret containing another is replaced whole.
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
}

// String redacts s.
func (r *Redactor) String(s string) string {
	if r == nil || r.mode == ModeOff {
		return s
	}

	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, r.replacement)
	}
	s = headerRe.ReplaceAllString(s, "${1}${2}"+r.replacement)
	s = queryRe.ReplaceAllString(s, "${1}"+r.replacement)
	s = githubTokenRe.ReplaceAllString(s, "${1}${2}"+r.replacement)

	if r.mode == ModeAggressive {
		s = r.assignRe.ReplaceAllString(s, "${1}${2}"+r.replacement)
	}
	return s
}

// Bytes redacts data.
func (r *Redactor) Bytes(data []byte) []byte {
	return []byte(r.String(string(data)))
}
