// Package redact scrubs secrets and personal data from transcript records
// before they leave the process.
package redact

import (
	"fmt"
	"regexp"
)

// Rule kinds selectable from configuration.
const (
	KindSecret = "secrets"
	KindPII    = "pii"
)

// Rule detects sensitive data in a string and provides a replacement.
type Rule interface {
	Name() string
	Kind() string
	Detect(s string) []Match
	Replacement(m Match) string
}

// Match is one detected occurrence within a string.
type Match struct {
	Start int
	End   int
	Value string
}

type regexRule struct {
	name    string
	kind    string
	pattern *regexp.Regexp
}

func (r *regexRule) Name() string { return r.name }
func (r *regexRule) Kind() string { return r.kind }

func (r *regexRule) Detect(s string) []Match {
	locs := r.pattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, len(locs))
	for i, loc := range locs {
		matches[i] = Match{Start: loc[0], End: loc[1], Value: s[loc[0]:loc[1]]}
	}
	return matches
}

func (r *regexRule) Replacement(_ Match) string {
	return fmt.Sprintf("[REDACTED:%s]", r.name)
}

func rule(kind, name, pattern string) Rule {
	return &regexRule{name: name, kind: kind, pattern: regexp.MustCompile(pattern)}
}

var secretRules = []Rule{
	rule(KindSecret, "aws_key", `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
	rule(KindSecret, "anthropic_key", `sk-ant-[A-Za-z0-9_\-]{20,}`),
	rule(KindSecret, "api_key", `(?:sk-[a-zA-Z0-9]{32,}|ghp_[a-zA-Z0-9]{36,}|gho_[a-zA-Z0-9]{36,}|glpat-[a-zA-Z0-9\-]{20,})`),
	rule(KindSecret, "slack_token", `xox[abprs]-[A-Za-z0-9\-]{10,}`),
	rule(KindSecret, "bearer", `(?i)\bbearer\s+[A-Za-z0-9\-_.=]{20,}`),
	rule(KindSecret, "private_key", `-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	rule(KindSecret, "connection_string", `(?:postgres(?:ql)?|mongodb(?:\+srv)?|mysql|redis|amqp)://[^\s"'`+"`"+`]+`),
	rule(KindSecret, "jwt", `eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_.+/=]+`),
}

var piiRules = []Rule{
	rule(KindPII, "email", `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	rule(KindPII, "ipv4", `\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	rule(KindPII, "phone", `(?:\+\d{1,3}[\s\-]?)?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}\b`),
}

// SecretRules returns the built-in credential rules.
func SecretRules() []Rule { return append([]Rule(nil), secretRules...) }

// PIIRules returns the built-in personal data rules.
func PIIRules() []Rule { return append([]Rule(nil), piiRules...) }

// RulesFor returns the built-in rules of the named kinds. An unknown kind
// is an error.
func RulesFor(kinds []string) ([]Rule, error) {
	var rules []Rule
	for _, k := range kinds {
		switch k {
		case KindSecret:
			rules = append(rules, secretRules...)
		case KindPII:
			rules = append(rules, piiRules...)
		default:
			return nil, fmt.Errorf("unknown redaction kind %q (want %s or %s)", k, KindSecret, KindPII)
		}
	}
	return rules, nil
}
